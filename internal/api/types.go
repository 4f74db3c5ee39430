// Package api defines the protocol types and client for the farm-operations
// REST backend.
package api

import "encoding/json"

// collectionEnvelope is the response shape of reference-collection reads:
// the collection name maps to its record array, e.g.
// {"parcelas": [{...}, {...}]}.
type collectionEnvelope map[string][]json.RawMessage

// ErrorResponse is the structured error format returned by the server. The
// human-readable detail field becomes the outbox item's last error.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
