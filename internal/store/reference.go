package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/miralcamp/camposync/internal/models"
)

// referenceBucket resolves a collection name to its bucket name.
func referenceBucket(collection string) ([]byte, error) {
	if !models.IsReferenceCollection(collection) {
		return nil, fmt.Errorf("unknown reference collection: %s", collection)
	}
	return []byte(collection), nil
}

// GetAll returns every record in a reference collection. The local store
// holds per-business volumes (thousands of rows), so no pagination is
// offered.
func (s *Store) GetAll(collection string) ([]*models.ReferenceRecord, error) {
	name, err := referenceBucket(collection)
	if err != nil {
		return nil, err
	}
	db, err := s.ready()
	if err != nil {
		return nil, err
	}

	var records []*models.ReferenceRecord
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(name).ForEach(func(k, v []byte) error {
			data := make([]byte, len(v))
			copy(data, v)
			records = append(records, &models.ReferenceRecord{ID: string(k), Data: data})
			return nil
		})
	})
	return records, err
}

// Put upserts a single record by its server identifier.
func (s *Store) Put(collection string, record *models.ReferenceRecord) error {
	name, err := referenceBucket(collection)
	if err != nil {
		return err
	}
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(name).Put([]byte(record.ID), record.Data)
	})
}

// PutMany upserts records in a single transaction: either all records are
// visible afterwards or, on failure, none are.
func (s *Store) PutMany(collection string, records []*models.ReferenceRecord) error {
	name, err := referenceBucket(collection)
	if err != nil {
		return err
	}
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(name)
		for _, r := range records {
			if err := b.Put([]byte(r.ID), r.Data); err != nil {
				return fmt.Errorf("put %s/%s: %w", collection, r.ID, err)
			}
		}
		return nil
	})
}

// Clear removes every record in a reference collection.
func (s *Store) Clear(collection string) error {
	name, err := referenceBucket(collection)
	if err != nil {
		return err
	}
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return clearBucket(tx, name)
	})
}

// Delete removes one record by its server identifier.
func (s *Store) Delete(collection, id string) error {
	name, err := referenceBucket(collection)
	if err != nil {
		return err
	}
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(name).Delete([]byte(id))
	})
}

// ReplaceReferenceData atomically replaces the contents of every given
// collection and records the refresh timestamp. The whole snapshot lands in
// one transaction, so a partially applied refresh is never observable — not
// even across collections.
func (s *Store) ReplaceReferenceData(sets map[string][]*models.ReferenceRecord, refreshedAt time.Time) error {
	for collection := range sets {
		if _, err := referenceBucket(collection); err != nil {
			return err
		}
	}
	db, err := s.ready()
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		for collection, records := range sets {
			name := []byte(collection)
			if err := clearBucket(tx, name); err != nil {
				return fmt.Errorf("clear %s: %w", collection, err)
			}
			b := tx.Bucket(name)
			for _, r := range records {
				if err := b.Put([]byte(r.ID), r.Data); err != nil {
					return fmt.Errorf("put %s/%s: %w", collection, r.ID, err)
				}
			}
		}
		meta := tx.Bucket(bucketSyncStatus)
		return meta.Put([]byte(models.MetaLastCacheUpdate), []byte(refreshedAt.UTC().Format(time.RFC3339Nano)))
	})
}

// clearBucket drops and recreates a bucket inside an open transaction, which
// is cheaper than iterating deletes for a full refresh.
func clearBucket(tx *bolt.Tx, name []byte) error {
	if err := tx.DeleteBucket(name); err != nil {
		return err
	}
	_, err := tx.CreateBucket(name)
	return err
}
