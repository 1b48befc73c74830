package postgres

import (
	"context"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// PhotoRepo implements ports.PhotoRepository.
type PhotoRepo struct {
	db *DB
}

func NewPhotoRepo(db *DB) *PhotoRepo {
	return &PhotoRepo{db: db}
}

func (r *PhotoRepo) Save(ctx context.Context, p *domain.Photo) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO photos (id, cafe_id, kind, content_type, width, height, size, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.CafeID, string(p.Kind), p.ContentType, p.Width, p.Height, p.Size, p.Data, p.CreatedAt)
	return err
}

func (r *PhotoRepo) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	p := &domain.Photo{}
	var kind string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, cafe_id, kind, content_type, width, height, size, data, created_at
		FROM photos WHERE id = $1
	`, id).Scan(&p.ID, &p.CafeID, &kind, &p.ContentType, &p.Width, &p.Height, &p.Size, &p.Data, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	p.Kind = domain.PhotoKind(kind)
	return p, nil
}

func (r *PhotoRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PhotoRepo) DeleteByCafe(ctx context.Context, cafeID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM photos WHERE cafe_id = $1`, cafeID)
	return err
}
