// Package store provides bbolt-based persistence for the CampoSync client.
// It holds the cached reference collections, the pending-operation outbox,
// and small key/value sync metadata in a single embedded database file that
// survives restarts of the agent.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/miralcamp/camposync/internal/models"
)

// currentSchemaVersion is bumped whenever a new bucket or index is added.
// Open creates anything missing and records the new version; existing data
// is preserved across upgrades.
const currentSchemaVersion = 2

// Bucket names. Reference collections are keyed by the record's server _id,
// the outbox by a store-assigned big-endian uint64 sequence, metadata by
// string name.
var (
	bucketParcelas    = []byte(models.CollectionParcelas)
	bucketCultivos    = []byte(models.CollectionCultivos)
	bucketContratos   = []byte(models.CollectionContratos)
	bucketProveedores = []byte(models.CollectionProveedores)
	bucketOutbox      = []byte("pending_sync")
	bucketOutboxType  = []byte("pending_sync_type") // index: "{type}:{id:020d}" -> nil
	bucketSyncStatus  = []byte("sync_status")
)

func allBuckets() [][]byte {
	return [][]byte{
		bucketParcelas,
		bucketCultivos,
		bucketContratos,
		bucketProveedores,
		bucketOutbox,
		bucketOutboxType,
		bucketSyncStatus,
	}
}

// Store is the local persistent store. Construct with New, then call Open
// before use; Open is idempotent and safe to call from multiple goroutines —
// only the first caller performs the real open, later callers share its
// outcome.
type Store struct {
	path string

	openOnce sync.Once
	openErr  error
	db       *bolt.DB
}

// New creates a store handle for the database at path. No I/O happens until
// Open.
func New(path string) *Store {
	return &Store{path: path}
}

// Open opens (creating or upgrading the schema if needed) the database.
func (s *Store) Open() error {
	s.openOnce.Do(func() {
		s.openErr = s.open()
	})
	return s.openErr
}

func (s *Store) open() error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	s.db = db
	return nil
}

// migrate creates missing buckets and applies forward schema migrations.
func migrate(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets() {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}

		version := 0
		meta := tx.Bucket(bucketSyncStatus)
		if v := meta.Get([]byte(models.MetaSchemaVersion)); v != nil {
			version, _ = strconv.Atoi(string(v))
		}

		if version < 2 {
			if err := rebuildOutboxTypeIndex(tx); err != nil {
				return fmt.Errorf("migration to v2 failed: %w", err)
			}
		}

		if version != currentSchemaVersion {
			return meta.Put([]byte(models.MetaSchemaVersion), []byte(strconv.Itoa(currentSchemaVersion)))
		}
		return nil
	})
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ready returns the open database or an error if Open has not succeeded.
func (s *Store) ready() (*bolt.DB, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not open")
	}
	return s.db, nil
}
