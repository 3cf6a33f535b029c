// Package repository defines the record-store contract the lifecycle engine
// and reporting read and write through. Production runs on the Google
// Sheets backend; tests and local runs use the in-memory one.
package repository

import (
	"context"

	"github.com/hmiyata/battrack/internal/domain/models"
)

// RecordStore persists the unit ledger. Implementations assign RowID on
// append, return records in stable store order from ListRecords, and only
// ever mutate rows in place. Rows are never deleted.
type RecordStore interface {
	// ListRecords loads the full ledger snapshot.
	ListRecords(ctx context.Context) ([]models.UnitRecord, error)
	// AppendRecords adds new rows at the end of the ledger.
	AppendRecords(ctx context.Context, records []models.UnitRecord) error
	// UpdateMatching rewrites every record the predicate selects after
	// applying patch to it, and reports how many rows were written.
	UpdateMatching(ctx context.Context, match func(models.UnitRecord) bool, patch func(record *models.UnitRecord)) (int, error)
}
