package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/pkg/geospatial"
	"github.com/samirrijal/cafelog/internal/pkg/metrics"
)

// Cache keys derived from the whole log. Every mutation drops them.
const (
	cacheKeyVisited = "cafes:visited"
	cacheKeyStats   = "cafes:stats"

	visitedTTL = 60
	statsTTL   = 300
)

// A visited entry carries a rating of at least 1; 0 means "not rated" and is
// only valid on wishlist entries.
var errRatingRequired = fmt.Errorf("%w: visited entries need a rating between 1 and 5", domain.ErrInvalidInput)

// CafeService handles the café log.
type CafeService struct {
	cafes     ports.CafeRepository
	photos    ports.PhotoRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	validate  *validator.Validate
	now       func() time.Time
}

// NewCafeService creates a new CafeService. photos, cache and publisher may be nil.
func NewCafeService(cafes ports.CafeRepository, photos ports.PhotoRepository, cache ports.CacheService, publisher ports.EventPublisher) *CafeService {
	return &CafeService{
		cafes:     cafes,
		photos:    photos,
		cache:     cache,
		publisher: publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}
}

func (s *CafeService) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// Create validates and stores a new entry.
func (s *CafeService) Create(ctx context.Context, in domain.CafeInput) (*domain.Cafe, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	loc, err := location(in.Lat, in.Lon)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cafe := &domain.Cafe{
		ID:            uuid.NewString(),
		GooglePlaceID: in.GooglePlaceID,
		Name:          strings.TrimSpace(in.Name),
		Address:       strings.TrimSpace(in.Address),
		Location:      loc,
		Rating:        in.Rating,
		Notes:         in.Notes,
		Wishlist:      in.Wishlist,
		VisitDate:     in.VisitDate,
		Tags:          normalizeTags(in.Tags),
		PhotoIDs:      []string{},
		MenuPhotoIDs:  []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cafe.Name == "" {
		return nil, fmt.Errorf("%w: name must not be blank", domain.ErrInvalidInput)
	}
	if !cafe.Wishlist && cafe.Rating == 0 {
		return nil, errRatingRequired
	}

	if err := s.cafes.Create(ctx, cafe); err != nil {
		return nil, fmt.Errorf("create cafe: %w", err)
	}
	s.changed(ctx, domain.CafeCreated, cafe.ID)
	return cafe, nil
}

// Get returns a single entry.
func (s *CafeService) Get(ctx context.Context, id string) (*domain.Cafe, error) {
	return s.cafes.GetByID(ctx, id)
}

// Update applies a partial update.
func (s *CafeService) Update(ctx context.Context, id string, upd domain.CafeUpdate) (*domain.Cafe, error) {
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if (upd.Lat == nil) != (upd.Lon == nil) {
		return nil, fmt.Errorf("%w: lat and lon must be set together", domain.ErrInvalidInput)
	}

	cafe, err := s.cafes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.GooglePlaceID != nil {
		cafe.GooglePlaceID = *upd.GooglePlaceID
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be blank", domain.ErrInvalidInput)
		}
		cafe.Name = name
	}
	if upd.Address != nil {
		cafe.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.Lat != nil {
		cafe.Location = &domain.GeoPoint{Lat: *upd.Lat, Lon: *upd.Lon}
	}
	if upd.Rating != nil {
		cafe.Rating = *upd.Rating
	}
	if upd.Notes != nil {
		cafe.Notes = *upd.Notes
	}
	if upd.Wishlist != nil {
		cafe.Wishlist = *upd.Wishlist
	}
	if upd.VisitDate != nil {
		cafe.VisitDate = upd.VisitDate
	}
	if upd.Tags != nil {
		cafe.Tags = normalizeTags(upd.Tags)
	}
	if (upd.Rating != nil || upd.Wishlist != nil) && !cafe.Wishlist && cafe.Rating == 0 {
		return nil, errRatingRequired
	}
	cafe.UpdatedAt = s.now().UTC()

	if err := s.cafes.Update(ctx, cafe); err != nil {
		return nil, fmt.Errorf("update cafe: %w", err)
	}
	s.changed(ctx, domain.CafeUpdated, cafe.ID)
	return cafe, nil
}

// ToggleWishlist flips an entry between wishlist and visited.
func (s *CafeService) ToggleWishlist(ctx context.Context, id string) (*domain.Cafe, error) {
	cafe, err := s.cafes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cafe.Wishlist = !cafe.Wishlist
	cafe.UpdatedAt = s.now().UTC()
	if err := s.cafes.Update(ctx, cafe); err != nil {
		return nil, fmt.Errorf("toggle wishlist: %w", err)
	}
	s.changed(ctx, domain.CafeUpdated, cafe.ID)
	return cafe, nil
}

// Delete removes an entry and its photos.
func (s *CafeService) Delete(ctx context.Context, id string) error {
	if _, err := s.cafes.GetByID(ctx, id); err != nil {
		return err
	}
	if s.photos != nil {
		if err := s.photos.DeleteByCafe(ctx, id); err != nil {
			return fmt.Errorf("delete photos of cafe %s: %w", id, err)
		}
	}
	if err := s.cafes.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete cafe: %w", err)
	}
	s.changed(ctx, domain.CafeDeleted, id)
	return nil
}

// List returns entries newest first.
func (s *CafeService) List(ctx context.Context, filter domain.CafeFilter) ([]domain.Cafe, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	return s.cafes.List(ctx, filter)
}

// Search matches name and address case-insensitively. An empty query lists everything.
func (s *CafeService) Search(ctx context.Context, query string) ([]domain.Cafe, error) {
	return s.List(ctx, domain.CafeFilter{Query: query})
}

// ListWishlist returns the want-to-visit entries.
func (s *CafeService) ListWishlist(ctx context.Context) ([]domain.Cafe, error) {
	yes := true
	return s.List(ctx, domain.CafeFilter{Wishlist: &yes})
}

// ListVisited returns the check-ins.
func (s *CafeService) ListVisited(ctx context.Context) ([]domain.Cafe, error) {
	no := false
	return s.List(ctx, domain.CafeFilter{Wishlist: &no})
}

// Nearby returns logged cafés within radiusMeters of center, closest first.
func (s *CafeService) Nearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.NearbyCafe, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("%w: invalid coordinates", domain.ErrInvalidInput)
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	all, err := s.cafes.List(ctx, domain.CafeFilter{})
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}

	var box domain.Bounds
	box.MinLat, box.MinLon, box.MaxLat, box.MaxLon = geospatial.BoundingBox(center.Lat, center.Lon, radiusMeters)

	out := []domain.NearbyCafe{}
	for _, c := range all {
		if c.Location == nil || !box.Contains(*c.Location) {
			continue
		}
		d := geospatial.Haversine(center.Lat, center.Lon, c.Location.Lat, c.Location.Lon)
		if d <= radiusMeters {
			out = append(out, domain.NearbyCafe{Cafe: c, DistanceMeters: math.Round(d*10) / 10})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// VisitedLocations returns the coordinates the fog is revealed around.
func (s *CafeService) VisitedLocations(ctx context.Context) ([]domain.GeoPoint, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyVisited); err == nil {
			var pts []domain.GeoPoint
			if err := json.Unmarshal(data, &pts); err == nil {
				metrics.CacheHits.WithLabelValues("visited_locations").Inc()
				return pts, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("visited_locations").Inc()
	}

	pts, err := s.cafes.VisitedLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("visited locations: %w", err)
	}
	if pts == nil {
		pts = []domain.GeoPoint{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(pts); err == nil {
			_ = s.cache.Set(ctx, cacheKeyVisited, data, visitedTTL)
		}
	}
	return pts, nil
}

// Stats summarises the log.
func (s *CafeService) Stats(ctx context.Context) (*domain.CafeStats, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyStats); err == nil {
			var st domain.CafeStats
			if err := json.Unmarshal(data, &st); err == nil {
				metrics.CacheHits.WithLabelValues("stats").Inc()
				return &st, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("stats").Inc()
	}

	all, err := s.cafes.List(ctx, domain.CafeFilter{})
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	st := ComputeStats(all, s.now())

	if s.cache != nil {
		if data, err := json.Marshal(st); err == nil {
			_ = s.cache.Set(ctx, cacheKeyStats, data, statsTTL)
		}
	}
	return st, nil
}

// ComputeStats buckets visited entries by year and, for the year of now, by
// month. Visits without a date count on their creation date.
func ComputeStats(cafes []domain.Cafe, now time.Time) *domain.CafeStats {
	st := &domain.CafeStats{Total: len(cafes), Yearly: []domain.YearCount{}}
	byYear := map[int]int{}
	ratingSum := 0

	for i := range cafes {
		c := &cafes[i]
		if !c.Visited() {
			st.Wishlist++
			continue
		}
		st.Visited++
		ratingSum += c.Rating
		at := c.VisitedAt().In(now.Location())
		byYear[at.Year()]++
		if at.Year() == now.Year() {
			st.ThisYear++
			st.Monthly[at.Month()-1]++
		}
	}

	if st.Visited > 0 {
		st.AvgRating = math.Round(float64(ratingSum)/float64(st.Visited)*10) / 10
	}
	for y, n := range byYear {
		st.Yearly = append(st.Yearly, domain.YearCount{Year: y, Count: n})
	}
	sort.Slice(st.Yearly, func(i, j int) bool { return st.Yearly[i].Year > st.Yearly[j].Year })
	return st
}

// GeoJSON exports every visited entry with a location as a FeatureCollection.
func (s *CafeService) GeoJSON(ctx context.Context) ([]byte, error) {
	visited, err := s.ListVisited(ctx)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, c := range visited {
		if c.Location == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{c.Location.Lon, c.Location.Lat})
		f.ID = c.ID
		f.Properties["name"] = c.Name
		f.Properties["address"] = c.Address
		f.Properties["rating"] = c.Rating
		f.Properties["tags"] = c.Tags
		f.Properties["visited_at"] = c.VisitedAt().Format(time.DateOnly)
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

// AttachPhoto records a stored photo on its café.
func (s *CafeService) AttachPhoto(ctx context.Context, cafeID, photoID string, kind domain.PhotoKind) error {
	cafe, err := s.cafes.GetByID(ctx, cafeID)
	if err != nil {
		return err
	}
	switch kind {
	case domain.PhotoKindMenu:
		cafe.MenuPhotoIDs = append(cafe.MenuPhotoIDs, photoID)
	default:
		cafe.PhotoIDs = append(cafe.PhotoIDs, photoID)
	}
	cafe.UpdatedAt = s.now().UTC()
	if err := s.cafes.Update(ctx, cafe); err != nil {
		return fmt.Errorf("attach photo: %w", err)
	}
	s.changed(ctx, domain.CafeUpdated, cafeID)
	return nil
}

// DetachPhoto removes a photo reference from its café.
func (s *CafeService) DetachPhoto(ctx context.Context, cafeID, photoID string) error {
	cafe, err := s.cafes.GetByID(ctx, cafeID)
	if err != nil {
		return err
	}
	cafe.PhotoIDs = without(cafe.PhotoIDs, photoID)
	cafe.MenuPhotoIDs = without(cafe.MenuPhotoIDs, photoID)
	cafe.UpdatedAt = s.now().UTC()
	if err := s.cafes.Update(ctx, cafe); err != nil {
		return fmt.Errorf("detach photo: %w", err)
	}
	s.changed(ctx, domain.CafeUpdated, cafeID)
	return nil
}

// changed drops derived caches and announces the change. Neither step fails
// the mutation.
func (s *CafeService) changed(ctx context.Context, typ domain.CafeEventType, id string) {
	metrics.CafeMutations.WithLabelValues(string(typ)).Inc()
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cacheKeyVisited)
		_ = s.cache.Delete(ctx, cacheKeyStats)
	}
	if s.publisher != nil {
		ev := &domain.CafeEvent{Type: typ, CafeID: id, Time: s.now().UTC()}
		if err := s.publisher.PublishCafeEvent(ctx, ev); err != nil {
			slog.WarnContext(ctx, "publish cafe event failed", "cafe_id", id, "type", typ, "error", err)
		}
	}
}

func location(lat, lon *float64) (*domain.GeoPoint, error) {
	if lat == nil && lon == nil {
		return nil, nil
	}
	if lat == nil || lon == nil {
		return nil, fmt.Errorf("%w: lat and lon must be set together", domain.ErrInvalidInput)
	}
	return &domain.GeoPoint{Lat: *lat, Lon: *lon}, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
