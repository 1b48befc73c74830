package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishCafeEvent(ctx context.Context, event *domain.CafeEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeCafeEvents(ctx context.Context, handler func(ctx context.Context, event *domain.CafeEvent) error) (unsubscribe func(), err error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PlaceSearcher looks up cafés in an external places directory.
type PlaceSearcher interface {
	SearchCafes(ctx context.Context, query string) ([]domain.PlacePrediction, error)
}

// PhotoUpload is an uncompressed upload waiting to be processed.
type PhotoUpload struct {
	CafeID string           `json:"cafe_id"`
	Kind   domain.PhotoKind `json:"kind"`
	Data   []byte           `json:"data"`
}

// ErrDispatchRejected is returned by a PhotoDispatcher that cannot take an
// upload, e.g. one too large for its payload limit. Callers process it inline.
var ErrDispatchRejected = errors.New("dispatch rejected")

// PhotoDispatcher hands an upload to an asynchronous processor.
type PhotoDispatcher interface {
	DispatchPhoto(ctx context.Context, upload PhotoUpload) (jobID string, err error)
}
