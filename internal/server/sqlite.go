// Package server implements a development stub of the farm-operations REST
// API: bearer-authenticated reference-collection reads and idempotent
// record creates backed by SQLite. It exists so the client, the agent, and
// the test suite have a faithful remote to run against; it carries no
// business logic beyond storage and duplicate suppression.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the stub server's SQLite storage.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the SQLite database at path. ":memory:" gives
// an ephemeral store for tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the schema.
func (s *Store) initialize() error {
	schema := `
	-- Reference collections, served wholesale to clients.
	CREATE TABLE IF NOT EXISTS reference (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	-- Records created by clients (visitas, tratamientos). client_ref is the
	-- idempotency key; NULL for requests without one.
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		client_ref TEXT UNIQUE,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeedReference upserts documents into a reference collection. Each
// document must carry an _id field.
func (s *Store) SeedReference(collection string, docs []json.RawMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, doc := range docs {
		var probe struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(doc, &probe); err != nil || probe.ID == "" {
			return fmt.Errorf("seed %s: document missing _id", collection)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO reference (collection, id, data) VALUES (?, ?, ?)`,
			collection, probe.ID, string(doc),
		); err != nil {
			return fmt.Errorf("seed %s/%s: %w", collection, probe.ID, err)
		}
	}
	return tx.Commit()
}

// ListReference returns every document in a collection, ordered by id.
func (s *Store) ListReference(collection string) ([]json.RawMessage, error) {
	rows, err := s.db.Query(
		`SELECT data FROM reference WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(data))
	}
	return docs, rows.Err()
}

// InsertRecord stores one created record. When clientRef matches an
// existing record the insert is suppressed and inserted is false — the
// request is acknowledged as a duplicate, not an error.
func (s *Store) InsertRecord(kind, clientRef string, payload []byte) (inserted bool, err error) {
	ref := sql.NullString{String: clientRef, Valid: clientRef != ""}
	res, err := s.db.Exec(
		`INSERT INTO records (kind, client_ref, payload) VALUES (?, ?, ?)
		 ON CONFLICT(client_ref) DO NOTHING`,
		kind, ref, string(payload),
	)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountRecords returns how many records of one kind have been accepted.
func (s *Store) CountRecords(kind string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE kind = ?`, kind).Scan(&count)
	return count, err
}
