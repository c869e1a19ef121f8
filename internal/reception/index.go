// Package reception indexes confirmed receipt records by normalized
// cast name so the reconciler can look up a worker's receipts under any
// of their brand aliases.
package reception

import (
	"castboard/internal/models"
	"castboard/internal/names"
)

// Index maps names.Key(castName) to that cast's receipt records.
type Index map[string][]*models.ReceptionRecord

// BuildIndex groups records by normalized cast name. Records whose cast
// name normalizes to the empty string are unattributable and dropped.
func BuildIndex(records []models.ReceptionRecord) Index {
	idx := make(Index)
	for i := range records {
		rec := &records[i]
		key := names.Key(rec.CastName)
		if key == "" {
			continue
		}
		idx[key] = append(idx[key], rec)
	}
	return idx
}

// Lookup returns the records for a raw (unnormalized) cast name.
func (idx Index) Lookup(rawName string) []*models.ReceptionRecord {
	key := names.Key(rawName)
	if key == "" {
		return nil
	}
	return idx[key]
}
