package models

import "time"

// Metadata keys stored in the sync_status collection.
const (
	MetaLastCacheUpdate = "last_cache_update"
	MetaSchemaVersion   = "schema_version"
)

// SyncSnapshot is the derived, never-persisted view of the sync subsystem:
// connectivity, drain-in-progress flag, outbox counts and the timestamp of
// the last reference-data refresh. It is recomputed from the store on every
// query.
type SyncSnapshot struct {
	IsOnline        bool          `json:"is_online"`
	IsSyncing       bool          `json:"is_syncing"`
	PendingCount    int           `json:"pending_count"`
	FailedCount     int           `json:"failed_count"`
	PendingItems    []*OutboxItem `json:"pending_items"`
	LastCacheUpdate time.Time     `json:"last_cache_update"`
}
