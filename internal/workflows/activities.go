package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/core/usecases"
)

// PhotoRef identifies a stored photo without its bytes.
type PhotoRef struct {
	ID     string           `json:"id"`
	CafeID string           `json:"cafe_id"`
	Kind   domain.PhotoKind `json:"kind"`
	Size   int              `json:"size"`
}

// PhotoActivities holds the activity implementations for the photo workflow.
type PhotoActivities struct {
	Photos *usecases.PhotoService
	Cafes  *usecases.CafeService
}

// StorePhoto compresses an upload and stores the result. Both happen in one
// activity so image bytes never enter workflow history.
func (a *PhotoActivities) StorePhoto(ctx context.Context, up ports.PhotoUpload) (PhotoRef, error) {
	p, err := a.Photos.Compress(ctx, up)
	if err != nil {
		return PhotoRef{}, permanent(err)
	}
	if err := a.Photos.Store(ctx, p); err != nil {
		return PhotoRef{}, err
	}
	return PhotoRef{ID: p.ID, CafeID: p.CafeID, Kind: p.Kind, Size: p.Size}, nil
}

// AttachPhoto records the stored photo on its café.
func (a *PhotoActivities) AttachPhoto(ctx context.Context, ref PhotoRef) error {
	if err := a.Cafes.AttachPhoto(ctx, ref.CafeID, ref.ID, ref.Kind); err != nil {
		return permanent(err)
	}
	return nil
}

// DeletePhoto removes a stored photo (saga compensation / rollback).
func (a *PhotoActivities) DeletePhoto(ctx context.Context, photoID string) error {
	err := a.Photos.Delete(ctx, photoID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete photo %s: %w", photoID, err)
	}
	slog.InfoContext(ctx, "photo deleted (saga compensation)", "photo_id", photoID)
	return nil
}

// permanent marks input and not-found errors as not worth retrying.
func permanent(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
	}
	return err
}
