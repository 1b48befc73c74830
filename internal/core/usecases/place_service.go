package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/pkg/metrics"
)

// MinPlaceQueryLen is the shortest query sent to the places directory.
const MinPlaceQueryLen = 2

// PlaceService looks up cafés to prefill new entries.
type PlaceService struct {
	searcher ports.PlaceSearcher
	cache    ports.CacheService
	ttl      int
}

// NewPlaceService creates a new PlaceService. ttlSeconds <= 0 caches for a day.
func NewPlaceService(searcher ports.PlaceSearcher, cache ports.CacheService, ttlSeconds int) *PlaceService {
	if ttlSeconds <= 0 {
		ttlSeconds = 86400
	}
	return &PlaceService{searcher: searcher, cache: cache, ttl: ttlSeconds}
}

// Search returns café predictions for query. Queries shorter than
// MinPlaceQueryLen runes return nothing without calling out.
func (s *PlaceService) Search(ctx context.Context, query string) ([]domain.PlacePrediction, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinPlaceQueryLen {
		return []domain.PlacePrediction{}, nil
	}

	cacheKey := "places:search:" + strings.ToLower(query)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var preds []domain.PlacePrediction
			if err := json.Unmarshal(data, &preds); err == nil {
				metrics.CacheHits.WithLabelValues("places").Inc()
				return preds, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("places").Inc()
	}

	preds, err := s.searcher.SearchCafes(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search places: %w", err)
	}
	if preds == nil {
		preds = []domain.PlacePrediction{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(preds); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}
	return preds, nil
}
