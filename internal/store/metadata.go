package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/miralcamp/camposync/internal/models"
)

// GetValue gets a value from the sync metadata collection. A missing key
// returns the empty string.
func (s *Store) GetValue(key string) (string, error) {
	db, err := s.ready()
	if err != nil {
		return "", err
	}
	var val string
	err = db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSyncStatus).Get([]byte(key)); v != nil {
			val = string(v)
		}
		return nil
	})
	return val, err
}

// SetValue sets a value in the sync metadata collection.
func (s *Store) SetValue(key, value string) error {
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSyncStatus).Put([]byte(key), []byte(value))
	})
}

// LastCacheUpdate returns the timestamp of the last successful reference
// refresh, or the zero time if no refresh has happened yet.
func (s *Store) LastCacheUpdate() (time.Time, error) {
	val, err := s.GetValue(models.MetaLastCacheUpdate)
	if err != nil || val == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last cache update: %w", err)
	}
	return t, nil
}
