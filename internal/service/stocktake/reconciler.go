// Package stocktake reconciles the units physically in hand against the
// recorded active inventory and writes confirmed corrections back through
// the lifecycle engine's own guards. It never applies anything on its own.
package stocktake

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/domain/models"
	"github.com/hmiyata/battrack/internal/service/lifecycle"
)

// MemoMissing marks records archived because a stocktake did not find the
// unit in hand.
const MemoMissing = "stocktake: not in hand"

// Reconciler runs stocktake comparisons against the live ledger.
type Reconciler struct {
	engine *lifecycle.Engine
	buffer *Buffer
	logger *zap.Logger
}

// NewReconciler wires a reconciler with an empty paste buffer.
func NewReconciler(engine *lifecycle.Engine, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{engine: engine, buffer: NewBuffer(), logger: logger}
}

// Buffer exposes the paste accumulator.
func (r *Reconciler) Buffer() *Buffer {
	return r.buffer
}

// Run compares the buffered observation against the current active records.
// The buffer is kept so the operator can paste more and run again.
func (r *Reconciler) Run(ctx context.Context) (models.StocktakeFindings, error) {
	observed := r.buffer.Pairs()
	active, err := r.engine.ActiveUnits(ctx)
	if err != nil {
		return models.StocktakeFindings{}, err
	}

	findings := Diff(observed, active)
	r.logger.Info("stocktake comparison finished",
		zap.Int("observed", len(observed)),
		zap.Int("active", len(active)),
		zap.Int("new_in_hand", len(findings.NewInHand)),
		zap.Int("missing_in_hand", len(findings.MissingInHand)),
		zap.Int("date_mismatch", len(findings.DateMismatch)))
	return findings, nil
}

// Diff computes the three-way difference between the observed units and the
// recorded active inventory: units in hand but not recorded, recorded units
// not in hand, and units whose recorded acquisition date disagrees with the
// observed one. A unit lands in at most one bucket.
func Diff(observed []models.SerialDate, active []models.UnitRecord) models.StocktakeFindings {
	var findings models.StocktakeFindings

	recorded := make(map[string]models.UnitRecord, len(active))
	for _, record := range active {
		if _, dup := recorded[record.Serial]; !dup {
			recorded[record.Serial] = record
		}
	}

	seen := make(map[string]struct{}, len(observed))
	for _, obs := range observed {
		seen[obs.Serial] = struct{}{}

		record, ok := recorded[obs.Serial]
		if !ok {
			findings.NewInHand = append(findings.NewInHand, obs)
			continue
		}
		observedDate := models.DateOf(obs.AcquiredAt)
		if record.AcquiredAt != nil && !models.DateOf(*record.AcquiredAt).Equal(observedDate) {
			findings.DateMismatch = append(findings.DateMismatch, models.DateMismatch{
				Serial:   obs.Serial,
				Recorded: models.DateOf(*record.AcquiredAt),
				Observed: observedDate,
			})
		}
	}

	for _, record := range active {
		if _, ok := seen[record.Serial]; !ok {
			findings.MissingInHand = append(findings.MissingInHand, models.MissingUnit{
				Serial:     record.Serial,
				Status:     record.Status,
				AcquiredAt: record.AcquiredAt,
			})
		}
	}

	return findings
}

// ApplyNew registers confirmed new-in-hand units. The usual duplicate guard
// still applies.
func (r *Reconciler) ApplyNew(ctx context.Context, pairs []models.SerialDate) (lifecycle.RegisterResult, error) {
	return r.engine.RegisterNew(ctx, pairs)
}

// ApplyMissing archives confirmed ghosts as unknown with the stocktake
// memo. Their rows stay in the ledger for the audit trail.
func (r *Reconciler) ApplyMissing(ctx context.Context, serials []string, completedAt time.Time, jobID string) (int, error) {
	return r.engine.ArchiveUnits(ctx, serials, models.StatusUnknown, completedAt, MemoMissing, jobID)
}

// ApplyDateFixes corrects confirmed date mismatches on in-stock records.
func (r *Reconciler) ApplyDateFixes(ctx context.Context, fixes []models.SerialDate) (int, error) {
	return r.engine.CorrectDates(ctx, fixes)
}
