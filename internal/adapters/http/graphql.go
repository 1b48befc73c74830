package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	cafeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cafe",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"google_place_id": &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"address":         &graphql.Field{Type: graphql.String},
			"location":        &graphql.Field{Type: geoPointType},
			"rating":          &graphql.Field{Type: graphql.Int},
			"notes":           &graphql.Field{Type: graphql.String},
			"wishlist":        &graphql.Field{Type: graphql.Boolean},
			"visit_date":      &graphql.Field{Type: graphql.DateTime},
			"tags":            &graphql.Field{Type: graphql.NewList(graphql.String)},
			"photo_ids":       &graphql.Field{Type: graphql.NewList(graphql.String)},
			"menu_photo_ids":  &graphql.Field{Type: graphql.NewList(graphql.String)},
			"created_at":      &graphql.Field{Type: graphql.DateTime},
			"updated_at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	yearCountType := graphql.NewObject(graphql.ObjectConfig{
		Name: "YearCount",
		Fields: graphql.Fields{
			"year":  &graphql.Field{Type: graphql.Int},
			"count": &graphql.Field{Type: graphql.Int},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CafeStats",
		Fields: graphql.Fields{
			"total":      &graphql.Field{Type: graphql.Int},
			"visited":    &graphql.Field{Type: graphql.Int},
			"wishlist":   &graphql.Field{Type: graphql.Int},
			"avg_rating": &graphql.Field{Type: graphql.Float},
			"this_year":  &graphql.Field{Type: graphql.Int},
			"yearly":     &graphql.Field{Type: graphql.NewList(yearCountType)},
			"monthly": &graphql.Field{
				Type: graphql.NewList(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st := p.Source.(*domain.CafeStats)
					return st.Monthly[:], nil
				},
			},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PlacePrediction",
		Fields: graphql.Fields{
			"place_id":       &graphql.Field{Type: graphql.String},
			"main_text":      &graphql.Field{Type: graphql.String},
			"secondary_text": &graphql.Field{Type: graphql.String},
			"full_text":      &graphql.Field{Type: graphql.String},
			"location":       &graphql.Field{Type: geoPointType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"cafes": &graphql.Field{
				Type:        graphql.NewList(cafeType),
				Description: "List entries, newest first, optionally filtered",
				Args: graphql.FieldConfigArgument{
					"query":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"wishlist": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := domain.CafeFilter{Query: p.Args["query"].(string)}
					if w, ok := p.Args["wishlist"].(bool); ok {
						f.Wishlist = &w
					}
					return deps.Cafes.List(p.Context, f)
				},
			},
			"cafe": &graphql.Field{
				Type:        cafeType,
				Description: "Get an entry by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Cafes.Get(p.Context, p.Args["id"].(string))
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Visit statistics",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Cafes.Stats(p.Context)
				},
			},
			"visitedLocations": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Coordinates the fog is cleared around",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Cafes.VisitedLocations(p.Context)
				},
			},
			"searchPlaces": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Search the places directory for cafés",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Places == nil {
						return []domain.PlacePrediction{}, nil
					}
					return deps.Places.Search(p.Context, p.Args["query"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createCafe": &graphql.Field{
				Type:        cafeType,
				Description: "Record a visit or a wishlist entry",
				Args: graphql.FieldConfigArgument{
					"name":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"address":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"lat":        &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":        &graphql.ArgumentConfig{Type: graphql.Float},
					"rating":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"notes":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"wishlist":   &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"visit_date": &graphql.ArgumentConfig{Type: graphql.DateTime},
					"tags":       &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in := domain.CafeInput{
						Name:     p.Args["name"].(string),
						Address:  p.Args["address"].(string),
						Rating:   p.Args["rating"].(int),
						Notes:    p.Args["notes"].(string),
						Wishlist: p.Args["wishlist"].(bool),
					}
					if v, ok := p.Args["lat"].(float64); ok {
						in.Lat = &v
					}
					if v, ok := p.Args["lon"].(float64); ok {
						in.Lon = &v
					}
					if v, ok := p.Args["visit_date"].(time.Time); ok {
						in.VisitDate = &v
					}
					if raw, ok := p.Args["tags"].([]interface{}); ok {
						for _, t := range raw {
							if s, ok := t.(string); ok {
								in.Tags = append(in.Tags, s)
							}
						}
					}
					return deps.Cafes.Create(p.Context, in)
				},
			},
			"toggleWishlist": &graphql.Field{
				Type:        cafeType,
				Description: "Flip an entry between wishlist and visited",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Cafes.ToggleWishlist(p.Context, p.Args["id"].(string))
				},
			},
			"deleteCafe": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Delete an entry and its photos",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Cafes.Delete(p.Context, p.Args["id"].(string)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
