package models

import (
	"encoding/json"
	"time"
)

// RecordType identifies the domain kind of a queued record. It is an open
// enum: the sync layer only needs the type to resolve a target endpoint, so
// unknown values are carried but skipped at delivery time.
type RecordType string

const (
	RecordVisita      RecordType = "visita"
	RecordTratamiento RecordType = "tratamiento"
)

// recordEndpoints maps a record type to the API resource its payload is
// POSTed to.
var recordEndpoints = map[RecordType]string{
	RecordVisita:      "visitas",
	RecordTratamiento: "tratamientos",
}

// Endpoint returns the API resource for this record type and whether the
// type is recognized.
func (rt RecordType) Endpoint() (string, bool) {
	ep, ok := recordEndpoints[rt]
	return ep, ok
}

// OutboxStatus is the delivery state of an outbox item.
type OutboxStatus string

const (
	// OutboxPending items are eligible for the next drain pass.
	OutboxPending OutboxStatus = "pending"
	// OutboxFailed items have exhausted their retry budget and wait for an
	// explicit operator retry or clear.
	OutboxFailed OutboxStatus = "failed"
)

// DefaultMaxAttempts is the retry budget per outbox item: the first two
// failures leave the item pending, the third flips it to failed.
const DefaultMaxAttempts = 3

// OutboxItem is one deferred create-operation against the remote API. The
// local store assigns ID on append; ClientRef is a client-generated
// idempotency key so a redelivered POST is deduplicated server-side.
type OutboxItem struct {
	ID          uint64          `json:"id"`
	Type        RecordType      `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	ClientRef   string          `json:"client_ref"`
	Status      OutboxStatus    `json:"status"`
	Attempts    int             `json:"attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	LastAttempt time.Time       `json:"last_attempt,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

// RecordFailure books a failed delivery attempt at the given time. Once the
// attempt count reaches the retry budget the item becomes terminal-failed.
func (i *OutboxItem) RecordFailure(now time.Time, cause string, budget int) {
	if budget <= 0 {
		budget = DefaultMaxAttempts
	}
	i.Attempts++
	i.LastAttempt = now
	i.LastError = cause
	if i.Attempts >= budget {
		i.Status = OutboxFailed
	}
}

// ResetForRetry returns a failed item to the pending pool with a fresh
// attempt budget.
func (i *OutboxItem) ResetForRetry() {
	i.Attempts = 0
	i.Status = OutboxPending
	i.LastError = ""
}
