// Package lifecycle owns the unit status state machine: registration,
// deployment, terminal transitions with all-or-nothing batch validation,
// and the retroactive weekly repricing of completed returns.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/domain/models"
	"github.com/hmiyata/battrack/internal/domain/pricing"
	"github.com/hmiyata/battrack/internal/repository"
)

// MemoEarlyBonus marks rows that earned the early-return bonus.
const MemoEarlyBonus = "early-bonus"

// Engine applies ledger mutations. Every bulk operation validates the whole
// batch against one snapshot before writing anything, so a single bad
// serial leaves the ledger untouched.
type Engine struct {
	store  repository.RecordStore
	now    func() time.Time
	logger *zap.Logger
}

// NewEngine wires the lifecycle engine. A nil clock defaults to time.Now
// and a nil logger to a no-op logger.
func NewEngine(store repository.RecordStore, clock func() time.Time, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, now: clock, logger: logger}
}

// RegisterResult reports a bulk registration outcome.
type RegisterResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// RegisterNew appends an in-stock row per pair, skipping serials that are
// already in hand. Terminal history does not block registration: a returned
// unit can re-enter stock under the same serial on a fresh row.
func (e *Engine) RegisterNew(ctx context.Context, pairs []models.SerialDate) (RegisterResult, error) {
	var result RegisterResult
	if len(pairs) == 0 {
		return result, nil
	}

	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return result, fmt.Errorf("load ledger: %w", err)
	}

	inHand := make(map[string]struct{})
	for _, record := range records {
		if record.Status.Active() {
			inHand[record.Serial] = struct{}{}
		}
	}

	var rows []models.UnitRecord
	for _, pair := range pairs {
		if _, dup := inHand[pair.Serial]; dup {
			result.Skipped++
			continue
		}
		inHand[pair.Serial] = struct{}{}
		acquired := models.DateOf(pair.AcquiredAt)
		rows = append(rows, models.UnitRecord{
			Serial:     pair.Serial,
			Status:     models.StatusInStock,
			AcquiredAt: &acquired,
		})
	}

	if len(rows) > 0 {
		if err := e.store.AppendRecords(ctx, rows); err != nil {
			return RegisterResult{}, fmt.Errorf("append %d records: %w", len(rows), err)
		}
	}

	result.Created = len(rows)
	e.logger.Info("units registered",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// TransitionRequest describes one terminal bulk transition.
type TransitionRequest struct {
	Serials     []string
	Target      models.Status
	CompletedAt time.Time
	Zone        models.Zone
	Price       int
	Memo        string
	JobID       string
}

// TransitionBulk moves every serial into the terminal target status. A
// serial that is missing or not currently active fails the whole batch
// with a *TransitionError and nothing is written.
func (e *Engine) TransitionBulk(ctx context.Context, req TransitionRequest) (int, error) {
	if len(req.Serials) == 0 {
		return 0, ErrEmptyBatch
	}
	if !req.Target.Terminal() {
		return 0, fmt.Errorf("target status %q is not terminal", req.Target)
	}
	if req.CompletedAt.IsZero() {
		req.CompletedAt = e.now()
	}

	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}
	active, last := indexBySerial(records)

	matched, verr := validateSerials("transition to "+string(req.Target), req.Serials, active, last, models.Status.Active)
	if verr != nil {
		return 0, verr
	}

	completed := models.DateOf(req.CompletedAt)
	rows := rowIDSet(matched)
	updated, err := e.store.UpdateMatching(ctx,
		func(r models.UnitRecord) bool { _, ok := rows[r.RowID]; return ok },
		func(r *models.UnitRecord) {
			c := completed
			r.Status = req.Target
			r.CompletedAt = &c
			r.Zone = req.Zone
			r.Amount = req.Price
			if req.Memo != "" {
				r.Memo = req.Memo
			}
			if req.JobID != "" {
				r.JobID = req.JobID
			}
		})
	if err != nil {
		return 0, fmt.Errorf("write transition batch: %w", err)
	}

	e.logger.Info("units transitioned",
		zap.String("status", string(req.Target)),
		zap.Int("count", updated),
		zap.String("job_id", req.JobID))
	return updated, nil
}

// ReturnRequest confirms a batch of physical returns for payment.
type ReturnRequest struct {
	Serials     []string
	Zone        models.Zone
	CompletedAt time.Time
	Memo        string
	JobID       string
}

// ReturnResult reports the written batch and the weekly totals behind its
// pricing.
type ReturnResult struct {
	Updated     int    `json:"updated"`
	WeeklyCount int    `json:"weekly_count"`
	VolumeBonus int    `json:"volume_bonus"`
	Recomputed  int    `json:"recomputed"`
	JobID       string `json:"job_id"`
}

// CompleteReturns prices and completes a return batch. The volume bonus
// uses the week's returned count including this batch; units completed
// inside the early window earn the early bonus on top and a memo marker.
// A batch can lift the whole week into a higher tier, so every other
// return completed in the same week is repriced afterwards.
func (e *Engine) CompleteReturns(ctx context.Context, req ReturnRequest) (ReturnResult, error) {
	var result ReturnResult
	if len(req.Serials) == 0 {
		return result, ErrEmptyBatch
	}
	base, err := pricing.BasePrice(req.Zone)
	if err != nil {
		return result, err
	}
	if req.CompletedAt.IsZero() {
		req.CompletedAt = e.now()
	}

	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return result, fmt.Errorf("load ledger: %w", err)
	}
	active, last := indexBySerial(records)

	matched, verr := validateSerials("return", req.Serials, active, last, models.Status.Active)
	if verr != nil {
		return result, verr
	}

	completed := models.DateOf(req.CompletedAt)
	week := pricing.WeekStart(completed)
	weekly := countReturnedInWeek(records, week) + len(matched)
	bonus := pricing.VolumeBonus(weekly)

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	rows := rowIDSet(matched)
	updated, err := e.store.UpdateMatching(ctx,
		func(r models.UnitRecord) bool { _, ok := rows[r.RowID]; return ok },
		func(r *models.UnitRecord) {
			amount := base + bonus
			memo := req.Memo
			if r.AcquiredAt != nil && pricing.IsEarly(*r.AcquiredAt, completed) {
				amount += pricing.EarlyBonus
				memo = joinMemo(memo, MemoEarlyBonus)
			}
			c := completed
			r.Status = models.StatusReturned
			r.CompletedAt = &c
			r.Zone = req.Zone
			r.Amount = amount
			r.JobID = jobID
			if memo != "" {
				r.Memo = memo
			}
		})
	if err != nil {
		return result, fmt.Errorf("write return batch: %w", err)
	}

	// The batch may have crossed a volume tier. Reprice the rest of the
	// week from a fresh snapshot.
	recomputed, err := e.RecomputeWeek(ctx, completed)
	if err != nil {
		return result, fmt.Errorf("weekly reprice after batch: %w", err)
	}

	result = ReturnResult{
		Updated:     updated,
		WeeklyCount: weekly,
		VolumeBonus: bonus,
		Recomputed:  recomputed,
		JobID:       jobID,
	}
	e.logger.Info("return batch completed",
		zap.Int("count", updated),
		zap.String("zone", string(req.Zone)),
		zap.Int("weekly_count", weekly),
		zap.Int("volume_bonus", bonus),
		zap.Int("recomputed", recomputed),
		zap.String("job_id", jobID))
	return result, nil
}

// RecomputeWeek reprices every paying return completed in the week holding
// anchor, using the week's final returned count. Adjustment rows are
// excluded from both the count and the repricing. Safe to run repeatedly:
// amounts already at the final tier are left alone.
func (e *Engine) RecomputeWeek(ctx context.Context, anchor time.Time) (int, error) {
	week := pricing.WeekStart(anchor)

	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	weekly := countReturnedInWeek(records, week)
	if weekly == 0 {
		return 0, nil
	}

	targets := make(map[int]int)
	for _, r := range records {
		if !pricing.CountsTowardVolume(r) || !pricing.InWeek(*r.CompletedAt, week) {
			continue
		}
		early := r.AcquiredAt != nil && pricing.IsEarly(*r.AcquiredAt, *r.CompletedAt)
		amount, err := pricing.Price(r.Zone, weekly, early)
		if err != nil {
			// Unknown zone on a manually edited row: leave it untouched.
			e.logger.Warn("skipping reprice for unknown zone",
				zap.String("serial", r.Serial),
				zap.String("zone", string(r.Zone)))
			continue
		}
		if amount != r.Amount {
			targets[r.RowID] = amount
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	updated, err := e.store.UpdateMatching(ctx,
		func(r models.UnitRecord) bool { _, ok := targets[r.RowID]; return ok },
		func(r *models.UnitRecord) { r.Amount = targets[r.RowID] })
	if err != nil {
		return 0, fmt.Errorf("write repriced amounts: %w", err)
	}

	e.logger.Info("weekly amounts repriced",
		zap.Time("week_start", week),
		zap.Int("weekly_count", weekly),
		zap.Int("updated", updated))
	return updated, nil
}

// MarkDeployed flags in-stock units as checked out for a job. Only in-stock
// units qualify; the batch is all-or-nothing like every other mutation.
func (e *Engine) MarkDeployed(ctx context.Context, serials []string, jobID string) (int, error) {
	if len(serials) == 0 {
		return 0, ErrEmptyBatch
	}

	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}
	active, last := indexBySerial(records)

	matched, verr := validateSerials("deploy", serials, active, last,
		func(s models.Status) bool { return s == models.StatusInStock })
	if verr != nil {
		return 0, verr
	}

	rows := rowIDSet(matched)
	updated, err := e.store.UpdateMatching(ctx,
		func(r models.UnitRecord) bool { _, ok := rows[r.RowID]; return ok },
		func(r *models.UnitRecord) {
			r.Status = models.StatusDeployed
			if jobID != "" {
				r.JobID = jobID
			}
		})
	if err != nil {
		return 0, fmt.Errorf("write deploy batch: %w", err)
	}

	e.logger.Info("units deployed", zap.Int("count", updated), zap.String("job_id", jobID))
	return updated, nil
}

// ArchiveUnits closes units under a non-paying terminal status: stocktake
// ghosts (unknown), mistaken returns (return_error), or manual removal.
func (e *Engine) ArchiveUnits(ctx context.Context, serials []string, target models.Status, completedAt time.Time, memo, jobID string) (int, error) {
	if target == models.StatusReturned || !target.Terminal() {
		return 0, fmt.Errorf("archive target must be a non-paying terminal status, got %q", target)
	}
	return e.TransitionBulk(ctx, TransitionRequest{
		Serials:     serials,
		Target:      target,
		CompletedAt: completedAt,
		Memo:        memo,
		JobID:       jobID,
	})
}

// CorrectDates rewrites acquisition dates found wrong during a stocktake.
// Only in-stock units qualify: once a unit is deployed or completed its
// recorded date took part in pricing and stays as written.
func (e *Engine) CorrectDates(ctx context.Context, fixes []models.SerialDate) (int, error) {
	if len(fixes) == 0 {
		return 0, ErrEmptyBatch
	}

	serials := make([]string, 0, len(fixes))
	dates := make(map[string]time.Time, len(fixes))
	for _, fix := range fixes {
		if _, dup := dates[fix.Serial]; !dup {
			serials = append(serials, fix.Serial)
		}
		dates[fix.Serial] = models.DateOf(fix.AcquiredAt)
	}

	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}
	active, last := indexBySerial(records)

	matched, verr := validateSerials("date correction", serials, active, last,
		func(s models.Status) bool { return s == models.StatusInStock })
	if verr != nil {
		return 0, verr
	}

	byRow := make(map[int]time.Time, len(matched))
	for _, record := range matched {
		byRow[record.RowID] = dates[record.Serial]
	}

	updated, err := e.store.UpdateMatching(ctx,
		func(r models.UnitRecord) bool { _, ok := byRow[r.RowID]; return ok },
		func(r *models.UnitRecord) {
			d := byRow[r.RowID]
			r.AcquiredAt = &d
		})
	if err != nil {
		return 0, fmt.Errorf("write date corrections: %w", err)
	}

	e.logger.Info("acquisition dates corrected", zap.Int("count", updated))
	return updated, nil
}

// Adjustment is a money-only ledger entry with no physical unit behind it:
// manual corrections, imported history, platform-side adjustments.
type Adjustment struct {
	Label  string
	Date   time.Time
	Amount int
	Memo   string
}

// AddAdjustment appends an adjustment row. The amount flows into earnings
// totals, may be negative for corrections, and never counts toward the
// weekly volume tier.
func (e *Engine) AddAdjustment(ctx context.Context, adj Adjustment) error {
	label := strings.TrimSpace(adj.Label)
	if label == "" {
		label = "manual"
	}
	if adj.Date.IsZero() {
		adj.Date = e.now()
	}
	completed := models.DateOf(adj.Date)
	row := models.UnitRecord{
		Serial:         label,
		Status:         models.StatusReturned,
		CompletedAt:    &completed,
		Amount:         adj.Amount,
		Memo:           adj.Memo,
		AdjustmentOnly: true,
	}
	if err := e.store.AppendRecords(ctx, []models.UnitRecord{row}); err != nil {
		return fmt.Errorf("append adjustment: %w", err)
	}

	e.logger.Info("adjustment recorded", zap.String("label", label), zap.Int("amount", adj.Amount))
	return nil
}

// ActiveUnits returns the in-stock and deployed records from one snapshot,
// in ledger order.
func (e *Engine) ActiveUnits(ctx context.Context) ([]models.UnitRecord, error) {
	records, err := e.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	var active []models.UnitRecord
	for _, record := range records {
		if record.Status.Active() {
			active = append(active, record)
		}
	}
	return active, nil
}

// indexBySerial builds two views of one snapshot: the active record per
// serial (at most one by the ledger invariant, first row wins) and the last
// record per serial in store order, used to name a blocker's status.
func indexBySerial(records []models.UnitRecord) (active, last map[string]models.UnitRecord) {
	active = make(map[string]models.UnitRecord)
	last = make(map[string]models.UnitRecord)
	for _, record := range records {
		if record.AdjustmentOnly {
			continue
		}
		last[record.Serial] = record
		if record.Status.Active() {
			if _, dup := active[record.Serial]; !dup {
				active[record.Serial] = record
			}
		}
	}
	return active, last
}

// validateSerials checks every requested serial against one snapshot and
// collects all offenders before reporting, so the caller can surface the
// entire problem in one round.
func validateSerials(op string, serials []string, active, last map[string]models.UnitRecord, allowed func(models.Status) bool) ([]models.UnitRecord, *TransitionError) {
	verr := &TransitionError{Op: op}
	matched := make([]models.UnitRecord, 0, len(serials))
	seen := make(map[string]struct{}, len(serials))

	for _, serial := range serials {
		if _, dup := seen[serial]; dup {
			continue
		}
		seen[serial] = struct{}{}

		record, ok := active[serial]
		if ok && allowed(record.Status) {
			matched = append(matched, record)
			continue
		}
		if !ok {
			if record, ok = last[serial]; !ok {
				verr.NotFound = append(verr.NotFound, serial)
				continue
			}
		}
		verr.Blocked = append(verr.Blocked, BlockedSerial{Serial: serial, Status: record.Status})
	}

	if len(verr.NotFound) > 0 || len(verr.Blocked) > 0 {
		return nil, verr
	}
	return matched, nil
}

func countReturnedInWeek(records []models.UnitRecord, weekStart time.Time) int {
	count := 0
	for _, record := range records {
		if pricing.CountsTowardVolume(record) && pricing.InWeek(*record.CompletedAt, weekStart) {
			count++
		}
	}
	return count
}

func rowIDSet(records []models.UnitRecord) map[int]struct{} {
	rows := make(map[int]struct{}, len(records))
	for _, record := range records {
		rows[record.RowID] = struct{}{}
	}
	return rows
}

func joinMemo(memo, marker string) string {
	if memo == "" {
		return marker
	}
	return memo + " " + marker
}
