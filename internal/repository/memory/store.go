// Package memory provides an in-memory record store for tests and local
// runs without Google Sheets credentials.
package memory

import (
	"context"
	"sync"

	"github.com/hmiyata/battrack/internal/domain/models"
)

// Store keeps the ledger in process memory with the same semantics as the
// sheet backend: rows are appended, patched in place, and never deleted.
type Store struct {
	mu      sync.RWMutex
	records []models.UnitRecord
	nextRow int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nextRow: 1}
}

// ListRecords returns a deep copy of the ledger in insertion order.
func (s *Store) ListRecords(ctx context.Context) ([]models.UnitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.UnitRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.Clone())
	}
	return out, nil
}

// AppendRecords adds rows at the end of the ledger and assigns their RowIDs.
func (s *Store) AppendRecords(ctx context.Context, records []models.UnitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		record = record.Clone()
		record.RowID = s.nextRow
		s.nextRow++
		s.records = append(s.records, record)
	}
	return nil
}

// UpdateMatching patches every matching row in place. RowIDs survive the
// patch regardless of what the callback does to them.
func (s *Store) UpdateMatching(ctx context.Context, match func(models.UnitRecord) bool, patch func(record *models.UnitRecord)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i := range s.records {
		if !match(s.records[i].Clone()) {
			continue
		}
		patched := s.records[i].Clone()
		patch(&patched)
		patched.RowID = s.records[i].RowID
		s.records[i] = patched
		updated++
	}
	return updated, nil
}
