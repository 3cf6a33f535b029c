package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{raw: "in_stock", want: StatusInStock},
		{raw: " Deployed ", want: StatusDeployed},
		{raw: "RETURNED", want: StatusReturned},
		{raw: "manually_removed", want: StatusManuallyRemoved},
		{raw: "return_error", want: StatusReturnError},
		{raw: "unknown", want: StatusUnknown},
		{raw: "lost", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseStatus(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, "raw=%q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestStatusLiveness(t *testing.T) {
	for _, s := range []Status{StatusInStock, StatusDeployed} {
		assert.True(t, s.Active(), "status %s", s)
		assert.False(t, s.Terminal(), "status %s", s)
	}
	for _, s := range []Status{StatusReturned, StatusUnknown, StatusReturnError, StatusManuallyRemoved} {
		assert.False(t, s.Active(), "status %s", s)
		assert.True(t, s.Terminal(), "status %s", s)
	}
}

func TestParseZone(t *testing.T) {
	zone, err := ParseZone(" a ")
	require.NoError(t, err)
	assert.Equal(t, ZoneTokyo23, zone)

	_, err = ParseZone("E")
	assert.Error(t, err)
	_, err = ParseZone("")
	assert.Error(t, err)
}

func TestUnitRecordCloneIsIndependent(t *testing.T) {
	acquired := day(t, "2024-08-01")
	original := UnitRecord{Serial: "10012345", Status: StatusInStock, AcquiredAt: &acquired}

	clone := original.Clone()
	moved := day(t, "2024-08-09")
	*clone.AcquiredAt = moved

	assert.Equal(t, day(t, "2024-08-01"), *original.AcquiredAt)
	assert.Equal(t, moved, *clone.AcquiredAt)
}

func TestDaysHeld(t *testing.T) {
	acquired := day(t, "2024-08-01")
	record := UnitRecord{Serial: "10012345", AcquiredAt: &acquired}

	assert.Equal(t, 0, record.DaysHeld(day(t, "2024-08-01")))
	assert.Equal(t, 3, record.DaysHeld(day(t, "2024-08-04")))
	assert.Equal(t, 0, UnitRecord{Serial: "manual"}.DaysHeld(day(t, "2024-08-04")))
}

func TestDateOfDropsClockAndZone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	at := time.Date(2024, 8, 1, 23, 45, 0, 0, jst)

	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), DateOf(at))
}
