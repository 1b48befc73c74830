package boltadapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// CafeRepo implements ports.CafeRepository.
type CafeRepo struct {
	db *bolt.DB
}

func (r *CafeRepo) Create(_ context.Context, c *domain.Cafe) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCafes)
		if b.Get([]byte(c.ID)) != nil {
			return fmt.Errorf("cafe %s already exists", c.ID)
		}
		return put(b, c.ID, c)
	})
}

func (r *CafeRepo) Update(_ context.Context, c *domain.Cafe) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCafes)
		if b.Get([]byte(c.ID)) == nil {
			return domain.ErrNotFound
		}
		return put(b, c.ID, c)
	})
}

func (r *CafeRepo) Delete(_ context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCafes)
		if b.Get([]byte(id)) == nil {
			return domain.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (r *CafeRepo) GetByID(_ context.Context, id string) (*domain.Cafe, error) {
	var c domain.Cafe
	err := r.db.View(func(tx *bolt.Tx) error {
		ok, err := get(tx.Bucket(bucketCafes), id, &c)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CafeRepo) List(_ context.Context, f domain.CafeFilter) ([]domain.Cafe, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	cafes := []domain.Cafe{}
	err := r.all(func(c domain.Cafe) {
		if f.Wishlist != nil && c.Wishlist != *f.Wishlist {
			return
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.Address), q) {
			return
		}
		cafes = append(cafes, c)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cafes, func(i, j int) bool {
		if cafes[i].CreatedAt.Equal(cafes[j].CreatedAt) {
			return cafes[i].ID > cafes[j].ID
		}
		return cafes[i].CreatedAt.After(cafes[j].CreatedAt)
	})
	return cafes, nil
}

func (r *CafeRepo) VisitedLocations(ctx context.Context) ([]domain.GeoPoint, error) {
	no := false
	cafes, err := r.List(ctx, domain.CafeFilter{Wishlist: &no})
	if err != nil {
		return nil, err
	}
	pts := []domain.GeoPoint{}
	for _, c := range cafes {
		if c.Location != nil {
			pts = append(pts, *c.Location)
		}
	}
	return pts, nil
}

func (r *CafeRepo) all(fn func(domain.Cafe)) error {
	return r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCafes).ForEach(func(k, _ []byte) error {
			var c domain.Cafe
			if _, err := get(tx.Bucket(bucketCafes), string(k), &c); err != nil {
				return err
			}
			fn(c)
			return nil
		})
	})
}
