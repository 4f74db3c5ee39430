package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/miralcamp/camposync/internal/models"
)

// outboxKey encodes an outbox ID as a big-endian uint64 so that bbolt's
// cursor order equals insertion order.
func outboxKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// outboxTypeKey builds the secondary-index key "{type}:{id:020d}".
func outboxTypeKey(rt models.RecordType, id uint64) []byte {
	return []byte(fmt.Sprintf("%s:%020d", rt, id))
}

// AppendOutbox appends a new item to the outbox, assigning its local ID from
// the bucket sequence. The item and its type-index entry land in one
// transaction.
func (s *Store) AppendOutbox(item *models.OutboxItem) error {
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)

		id, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next outbox sequence: %w", err)
		}
		item.ID = id

		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal outbox item: %w", err)
		}
		if err := b.Put(outboxKey(id), data); err != nil {
			return err
		}
		return tx.Bucket(bucketOutboxType).Put(outboxTypeKey(item.Type, id), nil)
	})
}

// OutboxByStatus returns all items with the given status in insertion order
// (oldest first).
func (s *Store) OutboxByStatus(status models.OutboxStatus) ([]*models.OutboxItem, error) {
	db, err := s.ready()
	if err != nil {
		return nil, err
	}
	var items []*models.OutboxItem
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(k, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshal outbox item: %w", err)
			}
			if item.Status == status {
				items = append(items, &item)
			}
			return nil
		})
	})
	return items, err
}

// OutboxByType returns all items of one record type in insertion order,
// resolved through the type index.
func (s *Store) OutboxByType(rt models.RecordType) ([]*models.OutboxItem, error) {
	db, err := s.ready()
	if err != nil {
		return nil, err
	}
	var items []*models.OutboxItem
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		c := tx.Bucket(bucketOutboxType).Cursor()
		prefix := []byte(string(rt) + ":")

		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			var id uint64
			if _, err := fmt.Sscanf(string(k[len(prefix):]), "%d", &id); err != nil {
				continue
			}
			v := b.Get(outboxKey(id))
			if v == nil {
				continue
			}
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshal outbox item: %w", err)
			}
			items = append(items, &item)
		}
		return nil
	})
	return items, err
}

// GetOutboxItem returns one item by its local ID.
func (s *Store) GetOutboxItem(id uint64) (*models.OutboxItem, error) {
	db, err := s.ready()
	if err != nil {
		return nil, err
	}
	var item models.OutboxItem
	err = db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketOutbox).Get(outboxKey(id))
		if v == nil {
			return fmt.Errorf("outbox item not found: %d", id)
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateOutboxItem overwrites an existing item's stored state.
func (s *Store) UpdateOutboxItem(item *models.OutboxItem) error {
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		key := outboxKey(item.ID)
		if b.Get(key) == nil {
			return fmt.Errorf("outbox item not found: %d", item.ID)
		}
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal outbox item: %w", err)
		}
		return b.Put(key, data)
	})
}

// DeleteOutboxItem removes a delivered or discarded item and its index entry.
func (s *Store) DeleteOutboxItem(id uint64) error {
	db, err := s.ready()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		key := outboxKey(id)
		v := b.Get(key)
		if v == nil {
			return nil
		}
		var item models.OutboxItem
		if err := json.Unmarshal(v, &item); err != nil {
			return fmt.Errorf("unmarshal outbox item: %w", err)
		}
		if err := b.Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketOutboxType).Delete(outboxTypeKey(item.Type, id))
	})
}

// ResetFailedOutbox returns every failed item to pending with a fresh
// attempt budget, in one transaction. Returns the number of items reset.
func (s *Store) ResetFailedOutbox() (int, error) {
	db, err := s.ready()
	if err != nil {
		return 0, err
	}
	count := 0
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)

		// Collect first — mutating a bucket during ForEach is undefined.
		var failed []*models.OutboxItem
		err := b.ForEach(func(k, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshal outbox item: %w", err)
			}
			if item.Status == models.OutboxFailed {
				failed = append(failed, &item)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, item := range failed {
			item.ResetForRetry()
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("marshal outbox item: %w", err)
			}
			if err := b.Put(outboxKey(item.ID), data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteFailedOutbox removes every failed item outright, in one transaction.
// Returns the number of items deleted.
func (s *Store) DeleteFailedOutbox() (int, error) {
	db, err := s.ready()
	if err != nil {
		return 0, err
	}
	count := 0
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutbox)
		idx := tx.Bucket(bucketOutboxType)

		var keys [][]byte
		var idxKeys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshal outbox item: %w", err)
			}
			if item.Status != models.OutboxFailed {
				return nil
			}
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			keys = append(keys, keyCopy)
			idxKeys = append(idxKeys, outboxTypeKey(item.Type, item.ID))
			return nil
		})
		if err != nil {
			return err
		}

		for i, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			if err := idx.Delete(idxKeys[i]); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// OutboxCounts returns the number of pending and terminal-failed items.
func (s *Store) OutboxCounts() (pending, failed int, err error) {
	db, err := s.ready()
	if err != nil {
		return 0, 0, err
	}
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(k, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshal outbox item: %w", err)
			}
			switch item.Status {
			case models.OutboxPending:
				pending++
			case models.OutboxFailed:
				failed++
			}
			return nil
		})
	})
	return pending, failed, err
}

// rebuildOutboxTypeIndex repopulates the type index from the outbox bucket.
// Used by the v2 migration; stores created before the index existed get it
// backfilled on first open.
func rebuildOutboxTypeIndex(tx *bolt.Tx) error {
	idx := tx.Bucket(bucketOutboxType)
	return tx.Bucket(bucketOutbox).ForEach(func(k, v []byte) error {
		var item models.OutboxItem
		if err := json.Unmarshal(v, &item); err != nil {
			return fmt.Errorf("unmarshal outbox item: %w", err)
		}
		return idx.Put(outboxTypeKey(item.Type, item.ID), nil)
	})
}
