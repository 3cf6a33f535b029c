package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmiyata/battrack/internal/domain/models"
	"github.com/hmiyata/battrack/internal/repository/memory"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return parsed
}

func newTestEngine(t *testing.T, today string) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return day(t, today) }
	return NewEngine(store, clock, nil), store
}

func registerUnits(t *testing.T, engine *Engine, acquired string, serials ...string) {
	t.Helper()
	pairs := make([]models.SerialDate, 0, len(serials))
	for _, serial := range serials {
		pairs = append(pairs, models.SerialDate{Serial: serial, AcquiredAt: day(t, acquired)})
	}
	result, err := engine.RegisterNew(context.Background(), pairs)
	require.NoError(t, err)
	require.Equal(t, len(serials), result.Created)
}

func recordsBySerial(t *testing.T, store *memory.Store) map[string][]models.UnitRecord {
	t.Helper()
	records, err := store.ListRecords(context.Background())
	require.NoError(t, err)
	out := make(map[string][]models.UnitRecord)
	for _, record := range records {
		out[record.Serial] = append(out[record.Serial], record)
	}
	return out
}

func TestRegisterNewSkipsUnitsAlreadyInHand(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	registerUnits(t, engine, "2024-08-01", "10000001", "10000002")

	result, err := engine.RegisterNew(ctx, []models.SerialDate{
		{Serial: "10000001", AcquiredAt: day(t, "2024-08-05")},
		{Serial: "10000003", AcquiredAt: day(t, "2024-08-05")},
	})
	require.NoError(t, err)
	assert.Equal(t, RegisterResult{Created: 1, Skipped: 1}, result)

	bySerial := recordsBySerial(t, store)
	require.Len(t, bySerial["10000001"], 1)
	assert.Equal(t, day(t, "2024-08-01"), *bySerial["10000001"][0].AcquiredAt, "existing row untouched")
	require.Len(t, bySerial["10000003"], 1)
}

func TestRegisterNewStartsFreshCycleAfterTerminal(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	registerUnits(t, engine, "2024-08-01", "10000001")
	_, err := engine.CompleteReturns(ctx, ReturnRequest{
		Serials:     []string{"10000001"},
		Zone:        models.ZoneTokyo23,
		CompletedAt: day(t, "2024-08-06"),
	})
	require.NoError(t, err)

	result, err := engine.RegisterNew(ctx, []models.SerialDate{
		{Serial: "10000001", AcquiredAt: day(t, "2024-08-10")},
	})
	require.NoError(t, err)
	assert.Equal(t, RegisterResult{Created: 1}, result)

	rows := recordsBySerial(t, store)["10000001"]
	require.Len(t, rows, 2)
	assert.Equal(t, models.StatusReturned, rows[0].Status)
	assert.Equal(t, models.StatusInStock, rows[1].Status)
}

func TestReturnBatchIsAllOrNothing(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	registerUnits(t, engine, "2024-08-01", "10000001", "10000002")
	_, err := engine.CompleteReturns(ctx, ReturnRequest{
		Serials:     []string{"10000002"},
		Zone:        models.ZoneTokyo23,
		CompletedAt: day(t, "2024-08-05"),
	})
	require.NoError(t, err)

	_, err = engine.CompleteReturns(ctx, ReturnRequest{
		Serials:     []string{"10000001", "10000002", "99999999"},
		Zone:        models.ZoneTokyo23,
		CompletedAt: day(t, "2024-08-06"),
	})

	var verr *TransitionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []BlockedSerial{{Serial: "10000002", Status: models.StatusReturned}}, verr.Blocked)
	assert.Equal(t, []string{"99999999"}, verr.NotFound)
	assert.ElementsMatch(t, []string{"10000002", "99999999"}, verr.Offending())
	assert.Equal(t, "not_found", verr.CurrentStatuses()["99999999"])

	// The valid serial in the failed batch must be untouched.
	rows := recordsBySerial(t, store)["10000001"]
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusInStock, rows[0].Status)
	assert.Nil(t, rows[0].CompletedAt)
}

func TestCompleteReturnsPricesEachUnit(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	// 10000001 held one day (early), 10000002 held five weeks.
	registerUnits(t, engine, "2024-08-05", "10000001")
	registerUnits(t, engine, "2024-07-01", "10000002")

	result, err := engine.CompleteReturns(ctx, ReturnRequest{
		Serials:     []string{"10000001", "10000002"},
		Zone:        models.ZoneTokyo23,
		CompletedAt: day(t, "2024-08-06"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 2, result.WeeklyCount)
	assert.Zero(t, result.VolumeBonus)
	assert.Zero(t, result.Recomputed)
	assert.NotEmpty(t, result.JobID)

	bySerial := recordsBySerial(t, store)
	early := bySerial["10000001"][0]
	assert.Equal(t, 65, early.Amount, "base 55 + early 10")
	assert.Contains(t, early.Memo, MemoEarlyBonus)
	assert.Equal(t, result.JobID, early.JobID)

	late := bySerial["10000002"][0]
	assert.Equal(t, 55, late.Amount)
	assert.NotContains(t, late.Memo, MemoEarlyBonus)
	require.NotNil(t, late.CompletedAt)
	assert.Equal(t, day(t, "2024-08-06"), *late.CompletedAt)
}

func TestCompleteReturnsCrossingTierRepricesWholeWeek(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-07")
	ctx := context.Background()

	// Nineteen returns already completed this week at the no-bonus price.
	completed := day(t, "2024-08-06")
	acquired := day(t, "2024-07-01")
	seed := make([]models.UnitRecord, 0, 19)
	for i := 0; i < 19; i++ {
		a, c := acquired, completed
		seed = append(seed, models.UnitRecord{
			Serial:      fmt.Sprintf("2000%04d", i),
			Status:      models.StatusReturned,
			AcquiredAt:  &a,
			CompletedAt: &c,
			Zone:        models.ZoneTokyo23,
			Amount:      55,
		})
	}
	require.NoError(t, store.AppendRecords(ctx, seed))

	registerUnits(t, engine, "2024-07-01", "10000001")
	result, err := engine.CompleteReturns(ctx, ReturnRequest{
		Serials:     []string{"10000001"},
		Zone:        models.ZoneTokyo23,
		CompletedAt: day(t, "2024-08-07"),
	})
	require.NoError(t, err)

	assert.Equal(t, 20, result.WeeklyCount, "the batch tips the week over the tier")
	assert.Equal(t, 5, result.VolumeBonus)
	assert.Equal(t, 19, result.Recomputed, "every earlier return this week repriced")

	records, err := store.ListRecords(ctx)
	require.NoError(t, err)
	for _, record := range records {
		assert.Equal(t, 60, record.Amount, "serial %s", record.Serial)
	}
}

func TestRecomputeWeekIsIdempotent(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-07")
	ctx := context.Background()

	completed := day(t, "2024-08-06")
	acquired := day(t, "2024-07-01")
	seed := make([]models.UnitRecord, 0, 21)
	for i := 0; i < 21; i++ {
		a, c := acquired, completed
		seed = append(seed, models.UnitRecord{
			Serial:      fmt.Sprintf("2000%04d", i),
			Status:      models.StatusReturned,
			AcquiredAt:  &a,
			CompletedAt: &c,
			Zone:        models.ZoneOther,
			Amount:      70,
		})
	}
	require.NoError(t, store.AppendRecords(ctx, seed))

	first, err := engine.RecomputeWeek(ctx, completed)
	require.NoError(t, err)
	assert.Equal(t, 21, first, "21 returns earn the +5 tier")

	second, err := engine.RecomputeWeek(ctx, completed)
	require.NoError(t, err)
	assert.Zero(t, second, "amounts already at the final tier")
}

func TestRecomputeWeekLeavesOtherWeeksAndAdjustmentsAlone(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-07")
	ctx := context.Background()

	acquired := day(t, "2024-07-01")
	appendReturned := func(serial, completedOn string, amount int, adjustment bool) {
		a, c := acquired, day(t, completedOn)
		require.NoError(t, store.AppendRecords(ctx, []models.UnitRecord{{
			Serial:         serial,
			Status:         models.StatusReturned,
			AcquiredAt:     &a,
			CompletedAt:    &c,
			Zone:           models.ZoneTokyo23,
			Amount:         amount,
			AdjustmentOnly: adjustment,
		}}))
	}

	for i := 0; i < 20; i++ {
		appendReturned(fmt.Sprintf("2000%04d", i), "2024-08-06", 55, false)
	}
	appendReturned("manual", "2024-08-06", 1000, true)
	appendReturned("30000001", "2024-07-30", 55, false)

	updated, err := engine.RecomputeWeek(ctx, day(t, "2024-08-06"))
	require.NoError(t, err)
	assert.Equal(t, 20, updated)

	bySerial := recordsBySerial(t, store)
	assert.Equal(t, 1000, bySerial["manual"][0].Amount, "adjustment amount untouched")
	assert.Equal(t, 55, bySerial["30000001"][0].Amount, "previous week untouched")
	assert.Equal(t, 60, bySerial["20000000"][0].Amount)
}

func TestMarkDeployedOnlyFromInStock(t *testing.T) {
	engine, _ := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	registerUnits(t, engine, "2024-08-01", "10000001")

	updated, err := engine.MarkDeployed(ctx, []string{"10000001"}, "job-7")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	_, err = engine.MarkDeployed(ctx, []string{"10000001"}, "job-8")
	var verr *TransitionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []BlockedSerial{{Serial: "10000001", Status: models.StatusDeployed}}, verr.Blocked)

	// A deployed unit can still be returned.
	result, err := engine.CompleteReturns(ctx, ReturnRequest{
		Serials:     []string{"10000001"},
		Zone:        models.ZoneDesignatedCity,
		CompletedAt: day(t, "2024-08-06"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
}

func TestCorrectDatesInStockOnly(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	registerUnits(t, engine, "2024-08-01", "10000001", "10000002")
	_, err := engine.MarkDeployed(ctx, []string{"10000002"}, "")
	require.NoError(t, err)

	_, err = engine.CorrectDates(ctx, []models.SerialDate{
		{Serial: "10000001", AcquiredAt: day(t, "2024-08-02")},
		{Serial: "10000002", AcquiredAt: day(t, "2024-08-02")},
	})
	var verr *TransitionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []BlockedSerial{{Serial: "10000002", Status: models.StatusDeployed}}, verr.Blocked)

	// Nothing was written for the valid half of the failed batch.
	bySerial := recordsBySerial(t, store)
	assert.Equal(t, day(t, "2024-08-01"), *bySerial["10000001"][0].AcquiredAt)

	updated, err := engine.CorrectDates(ctx, []models.SerialDate{
		{Serial: "10000001", AcquiredAt: day(t, "2024-08-02")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	bySerial = recordsBySerial(t, store)
	assert.Equal(t, day(t, "2024-08-02"), *bySerial["10000001"][0].AcquiredAt)
}

func TestArchiveUnits(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	registerUnits(t, engine, "2024-08-01", "10000001")

	_, err := engine.ArchiveUnits(ctx, []string{"10000001"}, models.StatusReturned, day(t, "2024-08-06"), "", "")
	assert.Error(t, err, "paying status must go through CompleteReturns")
	_, err = engine.ArchiveUnits(ctx, []string{"10000001"}, models.StatusInStock, day(t, "2024-08-06"), "", "")
	assert.Error(t, err, "active status is not an archive target")

	updated, err := engine.ArchiveUnits(ctx, []string{"10000001"}, models.StatusUnknown, day(t, "2024-08-06"), "stocktake: not in hand", "job-9")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	row := recordsBySerial(t, store)["10000001"][0]
	assert.Equal(t, models.StatusUnknown, row.Status)
	assert.Equal(t, "stocktake: not in hand", row.Memo)
	assert.Equal(t, "job-9", row.JobID)
	assert.Zero(t, row.Amount)
	require.NotNil(t, row.CompletedAt)
	assert.Equal(t, day(t, "2024-08-06"), *row.CompletedAt)
}

func TestAddAdjustmentStaysOutOfVolumeCount(t *testing.T) {
	engine, store := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	require.NoError(t, engine.AddAdjustment(ctx, Adjustment{
		Date:   day(t, "2024-08-06"),
		Amount: 500,
		Memo:   "history import",
	}))

	registerUnits(t, engine, "2024-07-01", "10000001")
	result, err := engine.CompleteReturns(ctx, ReturnRequest{
		Serials:     []string{"10000001"},
		Zone:        models.ZoneTokyo23,
		CompletedAt: day(t, "2024-08-06"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.WeeklyCount, "adjustment row does not count")

	row := recordsBySerial(t, store)["manual"][0]
	assert.True(t, row.AdjustmentOnly)
	assert.Equal(t, models.StatusReturned, row.Status)
	assert.Equal(t, 500, row.Amount)
	assert.Nil(t, row.AcquiredAt)
}

func TestBatchGuards(t *testing.T) {
	engine, _ := newTestEngine(t, "2024-08-06")
	ctx := context.Background()

	_, err := engine.TransitionBulk(ctx, TransitionRequest{Target: models.StatusReturned})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = engine.CompleteReturns(ctx, ReturnRequest{Zone: models.ZoneTokyo23})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = engine.TransitionBulk(ctx, TransitionRequest{
		Serials: []string{"10000001"},
		Target:  models.StatusDeployed,
	})
	assert.Error(t, err, "deployed is not a terminal target")
}
