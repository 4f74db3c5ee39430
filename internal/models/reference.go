// Package models defines the data types shared across the CampoSync client:
// cached reference records, outbox items, and the derived sync snapshot.
package models

import (
	"encoding/json"
	"fmt"
)

// Reference collection names. They mirror the server-side resource names and
// double as bucket names in the local store.
const (
	CollectionParcelas    = "parcelas"
	CollectionCultivos    = "cultivos"
	CollectionContratos   = "contratos"
	CollectionProveedores = "proveedores"
)

// ReferenceCollections lists every cached reference collection, in the order
// they are refreshed.
var ReferenceCollections = []string{
	CollectionParcelas,
	CollectionCultivos,
	CollectionContratos,
	CollectionProveedores,
}

// IsReferenceCollection reports whether name is a known reference collection.
func IsReferenceCollection(name string) bool {
	for _, c := range ReferenceCollections {
		if c == name {
			return true
		}
	}
	return false
}

// ReferenceRecord is a cached copy of a server-owned entity (parcel, crop,
// contract, provider). The client treats the body as opaque JSON; only the
// server-assigned identifier is lifted out for keying.
type ReferenceRecord struct {
	ID   string          `json:"_id"`
	Data json.RawMessage `json:"-"`
}

// ParseReferenceRecord extracts the server identifier from a raw JSON body.
func ParseReferenceRecord(data []byte) (*ReferenceRecord, error) {
	var probe struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse reference record: %w", err)
	}
	if probe.ID == "" {
		return nil, fmt.Errorf("reference record missing _id")
	}
	return &ReferenceRecord{ID: probe.ID, Data: json.RawMessage(data)}, nil
}
