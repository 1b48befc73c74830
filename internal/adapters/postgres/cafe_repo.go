package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// CafeRepo implements ports.CafeRepository.
type CafeRepo struct {
	db *DB
}

func NewCafeRepo(db *DB) *CafeRepo {
	return &CafeRepo{db: db}
}

const cafeColumns = `id, google_place_id, name, address, lat, lon, rating, notes, wishlist,
	visit_date, tags, photo_ids, menu_photo_ids, created_at, updated_at`

func (r *CafeRepo) Create(ctx context.Context, c *domain.Cafe) error {
	lat, lon := latLon(c.Location)
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO cafes (`+cafeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, c.ID, c.GooglePlaceID, c.Name, c.Address, lat, lon, c.Rating, c.Notes, c.Wishlist,
		c.VisitDate, nonNil(c.Tags), nonNil(c.PhotoIDs), nonNil(c.MenuPhotoIDs), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CafeRepo) Update(ctx context.Context, c *domain.Cafe) error {
	lat, lon := latLon(c.Location)
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE cafes SET
			google_place_id = $2, name = $3, address = $4, lat = $5, lon = $6, rating = $7,
			notes = $8, wishlist = $9, visit_date = $10, tags = $11, photo_ids = $12,
			menu_photo_ids = $13, updated_at = $14
		WHERE id = $1
	`, c.ID, c.GooglePlaceID, c.Name, c.Address, lat, lon, c.Rating, c.Notes, c.Wishlist,
		c.VisitDate, nonNil(c.Tags), nonNil(c.PhotoIDs), nonNil(c.MenuPhotoIDs), c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CafeRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM cafes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CafeRepo) GetByID(ctx context.Context, id string) (*domain.Cafe, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+cafeColumns+` FROM cafes WHERE id = $1`, id)
	c, err := scanCafe(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *CafeRepo) List(ctx context.Context, f domain.CafeFilter) ([]domain.Cafe, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+cafeColumns+`
		FROM cafes
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR address ILIKE '%' || $1 || '%')
		  AND ($2::boolean IS NULL OR wishlist = $2)
		ORDER BY created_at DESC
	`, escapeLike(f.Query), f.Wishlist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cafes := []domain.Cafe{}
	for rows.Next() {
		c, err := scanCafe(rows)
		if err != nil {
			return nil, err
		}
		cafes = append(cafes, *c)
	}
	return cafes, rows.Err()
}

func (r *CafeRepo) VisitedLocations(ctx context.Context) ([]domain.GeoPoint, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT lat, lon FROM cafes
		WHERE NOT wishlist AND lat IS NOT NULL AND lon IS NOT NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pts := []domain.GeoPoint{}
	for rows.Next() {
		var p domain.GeoPoint
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

func scanCafe(row pgx.Row) (*domain.Cafe, error) {
	var (
		c        domain.Cafe
		lat, lon *float64
	)
	err := row.Scan(&c.ID, &c.GooglePlaceID, &c.Name, &c.Address, &lat, &lon, &c.Rating, &c.Notes,
		&c.Wishlist, &c.VisitDate, &c.Tags, &c.PhotoIDs, &c.MenuPhotoIDs, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		c.Location = &domain.GeoPoint{Lat: *lat, Lon: *lon}
	}
	return &c, nil
}

func latLon(p *domain.GeoPoint) (*float64, *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Lat, &p.Lon
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
