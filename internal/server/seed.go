package server

import (
	"encoding/json"
	"fmt"

	"github.com/miralcamp/camposync/internal/models"
)

// SeedSampleData loads a small fixture set into every reference collection
// so a fresh development server has something to hand out.
func SeedSampleData(st *Store) error {
	samples := map[string][]json.RawMessage{
		models.CollectionParcelas: {
			json.RawMessage(`{"_id":"par-001","nombre":"Les Planes","superficie_ha":4.2,"municipio":"Miralcamp"}`),
			json.RawMessage(`{"_id":"par-002","nombre":"El Secà","superficie_ha":11.7,"municipio":"Mollerussa"}`),
		},
		models.CollectionCultivos: {
			json.RawMessage(`{"_id":"cul-001","nombre":"Manzano Golden","tipo":"frutal"}`),
			json.RawMessage(`{"_id":"cul-002","nombre":"Maíz grano","tipo":"extensivo"}`),
		},
		models.CollectionContratos: {
			json.RawMessage(`{"_id":"con-001","parcela":"par-001","campaña":"2026","estado":"activo"}`),
		},
		models.CollectionProveedores: {
			json.RawMessage(`{"_id":"pro-001","nombre":"Agroquímics Pla SL","telefono":"+34 973 000 000"}`),
		},
	}

	for collection, docs := range samples {
		if err := st.SeedReference(collection, docs); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
	}
	return nil
}
