package http

import (
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/core/usecases"
)

// ListCafesHandler lists entries, newest first.
// GET /v1/cafes?q=latte&wishlist=false&offset=0&limit=50
func ListCafesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if len(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		filter := domain.CafeFilter{Query: q}
		if raw := c.Query("wishlist"); raw != "" {
			w, err := strconv.ParseBool(raw)
			if err != nil {
				return errBadRequest(c, "wishlist must be true or false")
			}
			filter.Wishlist = &w
		}

		cafes, err := deps.Cafes.List(c.UserContext(), filter)
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}

		offset, limit := pageParams(c, 50, 200)
		page, pg := paginate(cafes, offset, limit)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// CreateCafeHandler records a visit or a wishlist entry.
func CreateCafeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.CafeInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cafe, err := deps.Cafes.Create(c.UserContext(), in)
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}
		c.Location("/v1/cafes/" + cafe.ID)
		return c.Status(fiber.StatusCreated).JSON(cafe)
	}
}

// GetCafeHandler returns a single entry by ID.
func GetCafeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "cafe id is required")
		}
		cafe, err := deps.Cafes.Get(c.UserContext(), id)
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}
		return c.JSON(cafe)
	}
}

// UpdateCafeHandler applies a partial update.
func UpdateCafeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "cafe id is required")
		}
		var upd domain.CafeUpdate
		if err := c.BodyParser(&upd); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		cafe, err := deps.Cafes.Update(c.UserContext(), id, upd)
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}
		return c.JSON(cafe)
	}
}

// DeleteCafeHandler removes an entry and its photos.
func DeleteCafeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "cafe id is required")
		}
		if err := deps.Cafes.Delete(c.UserContext(), id); err != nil {
			return errFrom(c, err, "cafe not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ToggleWishlistHandler flips an entry between wishlist and visited.
func ToggleWishlistHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cafe, err := deps.Cafes.ToggleWishlist(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}
		return c.JSON(cafe)
	}
}

// StatsHandler returns visit statistics.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Cafes.Stats(c.UserContext())
		if err != nil {
			return errFrom(c, err, "stats not found")
		}
		return c.JSON(stats)
	}
}

// NearbyCafesHandler returns logged cafés within a radius of a point.
func NearbyCafesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		center := domain.GeoPoint{Lat: c.QueryFloat("lat", math.NaN()), Lon: c.QueryFloat("lon", math.NaN())}
		radius := c.QueryFloat("radius", 1000)
		limit := c.QueryInt("limit", 20)

		if !center.Valid() {
			return errBadRequest(c, "lat/lon must be valid coordinates")
		}
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}

		cafes, err := deps.Cafes.Nearby(c.UserContext(), center, radius, limit)
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}
		return c.JSON(cafes)
	}
}

// ExportGeoJSONHandler exports visited cafés as a GeoJSON FeatureCollection.
func ExportGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := deps.Cafes.GeoJSON(c.UserContext())
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="cafes.geojson"`)
		return c.Send(data)
	}
}

// UploadPhotoHandler accepts an image as multipart field "file" or as the
// raw request body. ?kind=menu files it under the menu photos.
// Responds 201 with the stored photo, or 202 with a job ID when processing
// is asynchronous.
func UploadPhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "cafe id is required")
		}

		var data []byte
		if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
			fh, err := c.FormFile("file")
			if err != nil {
				return errBadRequest(c, "multipart field \"file\" is required")
			}
			f, err := fh.Open()
			if err != nil {
				return errBadRequest(c, "unreadable upload")
			}
			defer f.Close()
			if data, err = io.ReadAll(f); err != nil {
				return errBadRequest(c, "unreadable upload")
			}
		} else {
			// Body() is only valid during the handler; the upload may outlive it.
			data = append([]byte(nil), c.Body()...)
		}

		res, err := deps.Photos.Upload(c.UserContext(), ports.PhotoUpload{
			CafeID: id,
			Kind:   domain.PhotoKind(c.Query("kind", string(domain.PhotoKindPhoto))),
			Data:   data,
		})
		if err != nil {
			return errFrom(c, err, "cafe not found")
		}
		if res.JobID != "" {
			return c.Status(fiber.StatusAccepted).JSON(res)
		}
		c.Location("/v1/photos/" + res.Photo.ID)
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GetPhotoHandler serves the compressed image bytes.
func GetPhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "photo id is required")
		}
		p, err := deps.Photos.Get(c.UserContext(), id)
		if err != nil {
			return errFrom(c, err, "photo not found")
		}
		c.Set(fiber.HeaderContentType, p.ContentType)
		c.Set(fiber.HeaderETag, `"`+p.ID+`"`)
		return c.Send(p.Data)
	}
}

// DeletePhotoHandler detaches and deletes a photo.
func DeletePhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "photo id is required")
		}
		if err := deps.Photos.Delete(c.UserContext(), id); err != nil {
			return errFrom(c, err, "photo not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SearchPlacesHandler looks up cafés in the places directory.
// GET /v1/places/search?q=fika
func SearchPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Places == nil {
			return errUnavailable(c, "place search is not configured")
		}
		q := c.Query("q")
		if len(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		preds, err := deps.Places.Search(c.UserContext(), q)
		if err != nil {
			return errFrom(c, err, "no places found")
		}
		return c.JSON(preds)
	}
}

// FogPointsHandler returns the coordinates the fog is cleared around.
func FogPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pts, err := deps.Fog.Points(c.UserContext())
		if err != nil {
			return errFrom(c, err, "no visited locations")
		}
		if pts == nil {
			pts = []domain.GeoPoint{}
		}
		return c.JSON(pts)
	}
}

// FogPNGHandler renders the fog over a Web Mercator viewport.
// GET /v1/fog.png?lat=25.03&lon=121.56&zoom=13&width=512&height=512&opacity=0.8&radius=200&grain=true
func FogPNGHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseFogRequest(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		png, err := deps.Fog.RenderPNG(c.UserContext(), req)
		if err != nil {
			return errFrom(c, err, "fog not found")
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	}
}

// parseFogRequest reads the viewport and options from the query string.
func parseFogRequest(c *fiber.Ctx) (usecases.FogRequest, error) {
	var req usecases.FogRequest

	num := func(name string, def float64, required bool) (float64, error) {
		raw := c.Query(name)
		if raw == "" {
			if required {
				return 0, errors.New(name + " is required")
			}
			return def, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, errors.New(name + " must be a number")
		}
		return v, nil
	}

	lat, err := num("lat", 0, true)
	if err != nil {
		return req, err
	}
	lon, err := num("lon", 0, true)
	if err != nil {
		return req, err
	}
	req.Center = domain.GeoPoint{Lat: lat, Lon: lon}
	if !req.Center.Valid() {
		return req, errors.New("lat/lon out of range")
	}
	if req.Zoom, err = num("zoom", 13, false); err != nil {
		return req, err
	}
	if req.Zoom < 0 || req.Zoom > 22 {
		return req, errors.New("zoom must be between 0 and 22")
	}
	req.Width = c.QueryInt("width", 512)
	req.Height = c.QueryInt("height", 512)
	if req.RadiusMeters, err = num("radius", 0, false); err != nil {
		return req, err
	}
	if c.Query("opacity") != "" {
		op, err := num("opacity", 0, true)
		if err != nil {
			return req, err
		}
		req.Opacity = &op
	}
	if raw := c.Query("grain"); raw != "" {
		g, err := strconv.ParseBool(raw)
		if err != nil {
			return req, errors.New("grain must be true or false")
		}
		req.Grain = &g
	}
	return req, nil
}
