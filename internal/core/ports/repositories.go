package ports

import (
	"context"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// CafeRepository persists café entries. Implementations return
// domain.ErrNotFound for unknown IDs.
type CafeRepository interface {
	Create(ctx context.Context, cafe *domain.Cafe) error
	Update(ctx context.Context, cafe *domain.Cafe) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Cafe, error)
	// List returns entries newest first.
	List(ctx context.Context, filter domain.CafeFilter) ([]domain.Cafe, error)
	// VisitedLocations returns the coordinates of every visited entry that has one.
	VisitedLocations(ctx context.Context) ([]domain.GeoPoint, error)
}

// PhotoRepository persists compressed photos.
type PhotoRepository interface {
	Save(ctx context.Context, photo *domain.Photo) error
	GetByID(ctx context.Context, id string) (*domain.Photo, error)
	Delete(ctx context.Context, id string) error
	DeleteByCafe(ctx context.Context, cafeID string) error
}
