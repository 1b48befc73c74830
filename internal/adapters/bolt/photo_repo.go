package boltadapter

import (
	"bytes"
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/samirrijal/cafelog/internal/core/domain"
)

// PhotoRepo implements ports.PhotoRepository. An index bucket keyed
// "<cafe id>/<photo id>" lets a café's photos go without decoding blobs.
type PhotoRepo struct {
	db *bolt.DB
}

func indexKey(cafeID, photoID string) []byte {
	return []byte(cafeID + "/" + photoID)
}

func (r *PhotoRepo) Save(_ context.Context, p *domain.Photo) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := put(tx.Bucket(bucketPhotos), p.ID, p); err != nil {
			return err
		}
		return tx.Bucket(bucketPhotoIndex).Put(indexKey(p.CafeID, p.ID), nil)
	})
}

func (r *PhotoRepo) GetByID(_ context.Context, id string) (*domain.Photo, error) {
	var p domain.Photo
	err := r.db.View(func(tx *bolt.Tx) error {
		ok, err := get(tx.Bucket(bucketPhotos), id, &p)
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
	return &p, nil
}

func (r *PhotoRepo) Delete(_ context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		var p domain.Photo
		ok, err := get(tx.Bucket(bucketPhotos), id, &p)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		if err := tx.Bucket(bucketPhotoIndex).Delete(indexKey(p.CafeID, id)); err != nil {
			return err
		}
		return tx.Bucket(bucketPhotos).Delete([]byte(id))
	})
}

func (r *PhotoRepo) DeleteByCafe(_ context.Context, cafeID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucketPhotoIndex)
		photos := tx.Bucket(bucketPhotos)
		prefix := []byte(cafeID + "/")

		var keys [][]byte
		c := idx.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, bytes.Clone(k))
		}
		for _, k := range keys {
			if err := photos.Delete(k[len(prefix):]); err != nil {
				return fmt.Errorf("delete photo %s: %w", k[len(prefix):], err)
			}
			if err := idx.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
