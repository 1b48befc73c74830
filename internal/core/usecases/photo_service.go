package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
	"github.com/samirrijal/cafelog/internal/pkg/metrics"
	"github.com/samirrijal/cafelog/internal/pkg/photo"
)

// UploadResult reports what happened to an upload: either the stored photo,
// or the job it was handed to.
type UploadResult struct {
	Photo *domain.Photo `json:"photo,omitempty"`
	JobID string        `json:"job_id,omitempty"`
}

// PhotoService compresses, stores and attaches café photos.
type PhotoService struct {
	photos     ports.PhotoRepository
	cafes      *CafeService
	dispatcher ports.PhotoDispatcher
	opts       photo.Options
	now        func() time.Time
}

// NewPhotoService creates a new PhotoService. With a nil dispatcher uploads
// are processed inline.
func NewPhotoService(photos ports.PhotoRepository, cafes *CafeService, dispatcher ports.PhotoDispatcher, opts photo.Options) *PhotoService {
	return &PhotoService{photos: photos, cafes: cafes, dispatcher: dispatcher, opts: opts, now: time.Now}
}

// Upload accepts a raw image for a café.
func (s *PhotoService) Upload(ctx context.Context, up ports.PhotoUpload) (*UploadResult, error) {
	kind, err := photoKind(up.Kind)
	if err != nil {
		return nil, err
	}
	up.Kind = kind
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput)
	}
	if _, err := s.cafes.Get(ctx, up.CafeID); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		id, err := s.dispatcher.DispatchPhoto(ctx, up)
		switch {
		case err == nil:
			return &UploadResult{JobID: id}, nil
		case errors.Is(err, ports.ErrDispatchRejected):
			slog.DebugContext(ctx, "photo dispatch rejected, processing inline", "cafe_id", up.CafeID, "error", err)
		default:
			return nil, fmt.Errorf("dispatch photo: %w", err)
		}
	}

	p, err := s.Process(ctx, up)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Photo: p}, nil
}

// Process runs the whole pipeline in-process. A stored photo that cannot be
// attached to its café is deleted again.
func (s *PhotoService) Process(ctx context.Context, up ports.PhotoUpload) (*domain.Photo, error) {
	p, err := s.Compress(ctx, up)
	if err != nil {
		return nil, err
	}
	if err := s.Store(ctx, p); err != nil {
		return nil, err
	}
	if err := s.cafes.AttachPhoto(ctx, p.CafeID, p.ID, p.Kind); err != nil {
		if derr := s.photos.Delete(ctx, p.ID); derr != nil {
			slog.ErrorContext(ctx, "orphaned photo after failed attach", "photo_id", p.ID, "error", derr)
		}
		return nil, err
	}
	return p, nil
}

// Compress turns an upload into a photo record ready to store.
func (s *PhotoService) Compress(_ context.Context, up ports.PhotoUpload) (*domain.Photo, error) {
	kind, err := photoKind(up.Kind)
	if err != nil {
		return nil, err
	}
	res, err := photo.Compress(bytes.NewReader(up.Data), s.opts)
	if err != nil {
		metrics.PhotosProcessed.WithLabelValues("rejected").Inc()
		if errors.Is(err, photo.ErrDecode) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("compress photo: %w", err)
	}
	metrics.PhotosProcessed.WithLabelValues("compressed").Inc()

	return &domain.Photo{
		ID:          uuid.NewString(),
		CafeID:      up.CafeID,
		Kind:        kind,
		ContentType: res.ContentType,
		Width:       res.Width,
		Height:      res.Height,
		Size:        len(res.Data),
		Data:        res.Data,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// Store persists a compressed photo.
func (s *PhotoService) Store(ctx context.Context, p *domain.Photo) error {
	if err := s.photos.Save(ctx, p); err != nil {
		return fmt.Errorf("save photo: %w", err)
	}
	return nil
}

// Get returns a stored photo including its bytes.
func (s *PhotoService) Get(ctx context.Context, id string) (*domain.Photo, error) {
	return s.photos.GetByID(ctx, id)
}

// Delete removes a photo and its reference on the café.
func (s *PhotoService) Delete(ctx context.Context, id string) error {
	p, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cafes.DetachPhoto(ctx, p.CafeID, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := s.photos.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

func photoKind(k domain.PhotoKind) (domain.PhotoKind, error) {
	switch k {
	case "":
		return domain.PhotoKindPhoto, nil
	case domain.PhotoKindPhoto, domain.PhotoKindMenu:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown photo kind %q", domain.ErrInvalidInput, k)
}
