// Package boltadapter is the embedded single-file store used when no
// PostgreSQL server is configured. Records are msgpack-encoded in bbolt
// buckets.
package boltadapter

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCafes      = []byte("cafes")
	bucketPhotos     = []byte("photos")
	bucketPhotoIndex = []byte("photos_by_cafe")
)

// Store owns the bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketCafes, bucketPhotos, bucketPhotoIndex} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Cafes returns the café repository backed by this store.
func (s *Store) Cafes() *CafeRepo { return &CafeRepo{db: s.db} }

// Photos returns the photo repository backed by this store.
func (s *Store) Photos() *PhotoRepo { return &PhotoRepo{db: s.db} }

func put(b *bolt.Bucket, key string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Put([]byte(key), data)
}

func get(b *bolt.Bucket, key string, v any) (bool, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
