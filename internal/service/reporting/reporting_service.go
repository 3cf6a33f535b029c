// Package reporting aggregates the unit ledger into the views the
// dashboard renders: the weekly KPI block, the pickup recommendation list,
// the sorted inventory, and serial-suffix lookups.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/domain/models"
	"github.com/hmiyata/battrack/internal/domain/pricing"
	"github.com/hmiyata/battrack/internal/repository"
	"github.com/hmiyata/battrack/internal/repository/mongodb"
)

const (
	// PenaltyLimitDays is how long a unit may be held before the platform
	// penalty applies.
	PenaltyLimitDays = 28
	// pickupUrgentDays puts units whose remaining penalty window is at or
	// below this at the top of the pickup list.
	pickupUrgentDays = 5
)

// ErrEmptySuffix rejects suffix searches with nothing to match.
var ErrEmptySuffix = errors.New("empty search suffix")

// Service computes read-only views over the ledger. The snapshot
// repository may be nil, which disables archiving.
type Service struct {
	store     repository.RecordStore
	snapshots mongodb.Repository
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(store repository.RecordStore, snapshots mongodb.Repository, clock func() time.Time, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, snapshots: snapshots, now: clock, logger: logger}
}

// WeeklySummary computes the KPI block for the week holding anchor. The
// volume count excludes adjustment rows; earnings include them.
func (s *Service) WeeklySummary(ctx context.Context, anchor time.Time) (models.WeeklySummary, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return models.WeeklySummary{}, fmt.Errorf("load ledger: %w", err)
	}

	week := pricing.WeekStart(anchor)
	summary := models.WeeklySummary{WeekStart: week}
	for _, record := range records {
		if record.Status.Active() {
			summary.ActiveCount++
			continue
		}
		if record.Status != models.StatusReturned || record.CompletedAt == nil {
			continue
		}

		summary.TotalEarnings += record.Amount
		if !pricing.InWeek(*record.CompletedAt, week) {
			continue
		}
		summary.WeeklyEarnings += record.Amount
		if !record.AdjustmentOnly {
			summary.ReturnedCount++
		}
	}

	summary.VolumeBonus = pricing.VolumeBonus(summary.ReturnedCount)
	if target, _, ok := pricing.NextTier(summary.ReturnedCount); ok {
		summary.NextTierTarget = target
		summary.NextTierRemaining = target - summary.ReturnedCount
	}
	return summary, nil
}

// PickupPlan ranks the active inventory for the next return run: units
// close to the penalty deadline first, then units still inside the
// early-bonus window, then the rest, longest-held first within each rank.
// After the limit is applied the list is re-sorted into field-walk order.
func (s *Service) PickupPlan(ctx context.Context, limit int) ([]models.PickupCandidate, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	today := models.DateOf(s.now())
	var candidates []models.PickupCandidate
	for _, record := range records {
		if !record.Status.Active() || record.AcquiredAt == nil {
			continue
		}

		held := record.DaysHeld(today)
		left := PenaltyLimitDays - held
		rank := 3
		switch {
		case left <= pickupUrgentDays:
			rank = 1
		case held <= pricing.EarlyReturnWindowDays:
			rank = 2
		}
		candidates = append(candidates, models.PickupCandidate{
			Serial:          record.Serial,
			AcquiredAt:      models.DateOf(*record.AcquiredAt),
			DaysHeld:        held,
			PenaltyDaysLeft: left,
			Rank:            rank,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Rank != candidates[j].Rank {
			return candidates[i].Rank < candidates[j].Rank
		}
		return candidates[i].DaysHeld > candidates[j].DaysHeld
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	// Field-walk order: units are racked by date, then by the big tail
	// digits printed on the label.
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].AcquiredAt.Equal(candidates[j].AcquiredAt) {
			return candidates[i].AcquiredAt.Before(candidates[j].AcquiredAt)
		}
		return reverseString(candidates[i].Serial) < reverseString(candidates[j].Serial)
	})
	return candidates, nil
}

// InventoryList returns the active records sorted for display: acquisition
// date ascending, ties broken by serial compared tail-first.
func (s *Service) InventoryList(ctx context.Context) ([]models.UnitRecord, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	var active []models.UnitRecord
	for _, record := range records {
		if record.Status.Active() {
			active = append(active, record)
		}
	}
	sortUnits(active)
	return active, nil
}

// SearchBySuffix finds units whose serial ends with the given digits.
// Active hits come back in display order; completed ones newest first, so
// the top history entry answers when the unit left.
func (s *Service) SearchBySuffix(ctx context.Context, suffix string) (models.SuffixSearchResult, error) {
	var result models.SuffixSearchResult
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return result, ErrEmptySuffix
	}

	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return result, fmt.Errorf("load ledger: %w", err)
	}

	for _, record := range records {
		if record.AdjustmentOnly || !strings.HasSuffix(record.Serial, suffix) {
			continue
		}
		if record.Status.Active() {
			result.Active = append(result.Active, record)
		} else {
			result.History = append(result.History, record)
		}
	}

	sortUnits(result.Active)
	sort.SliceStable(result.History, func(i, j int) bool {
		return dateOrZero(result.History[j].CompletedAt).Before(dateOrZero(result.History[i].CompletedAt))
	})
	return result, nil
}

// ArchiveWeeklySnapshot persists the current week's KPI block. Without a
// snapshot repository the summary is only computed and logged.
func (s *Service) ArchiveWeeklySnapshot(ctx context.Context) (models.WeeklySnapshot, error) {
	now := s.now()
	summary, err := s.WeeklySummary(ctx, now)
	if err != nil {
		return models.WeeklySnapshot{}, err
	}

	snapshot := models.WeeklySnapshot{
		WeekStart:      summary.WeekStart,
		ReturnedCount:  summary.ReturnedCount,
		VolumeBonus:    summary.VolumeBonus,
		WeeklyEarnings: summary.WeeklyEarnings,
		TotalEarnings:  summary.TotalEarnings,
		ActiveCount:    summary.ActiveCount,
		CreatedAt:      now,
	}

	if s.snapshots == nil {
		s.logger.Warn("snapshot repository not configured, archive skipped",
			zap.Time("week_start", snapshot.WeekStart))
		return snapshot, nil
	}
	if err := s.snapshots.SaveWeeklySnapshot(ctx, snapshot); err != nil {
		return models.WeeklySnapshot{}, fmt.Errorf("archive weekly snapshot: %w", err)
	}

	s.logger.Info("weekly snapshot archived",
		zap.Time("week_start", snapshot.WeekStart),
		zap.Int("returned", snapshot.ReturnedCount))
	return snapshot, nil
}

// SnapshotHistory returns archived weekly KPI blocks, newest first. Without
// a snapshot repository the history is empty.
func (s *Service) SnapshotHistory(ctx context.Context, limit int) ([]models.WeeklySnapshot, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	snapshots, err := s.snapshots.LatestSnapshots(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("load snapshot history: %w", err)
	}
	return snapshots, nil
}

// sortUnits orders records by acquisition date, then by reversed serial.
// The reversed comparison matches how operators scan racks: the last four
// digits are printed large on the unit label.
func sortUnits(records []models.UnitRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := dateOrZero(records[i].AcquiredAt), dateOrZero(records[j].AcquiredAt)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return reverseString(records[i].Serial) < reverseString(records[j].Serial)
	})
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return models.DateOf(*t)
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
