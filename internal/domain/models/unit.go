package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the civil date format used across the ledger and the API.
const DateLayout = "2006-01-02"

// Status enumerates the lifecycle states of a unit record.
type Status string

const (
	StatusInStock         Status = "in_stock"
	StatusDeployed        Status = "deployed"
	StatusReturned        Status = "returned"
	StatusUnknown         Status = "unknown"
	StatusReturnError     Status = "return_error"
	StatusManuallyRemoved Status = "manually_removed"
)

// Active reports whether the status still allows lifecycle transitions.
func (s Status) Active() bool {
	return s == StatusInStock || s == StatusDeployed
}

// Terminal reports whether the status closes the record for good.
func (s Status) Terminal() bool {
	switch s {
	case StatusReturned, StatusUnknown, StatusReturnError, StatusManuallyRemoved:
		return true
	}
	return false
}

// ParseStatus maps a stored or submitted string onto the closed status enum.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.Active() || s.Terminal() {
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Zone identifies a pricing zone. Codes follow the platform's area list.
type Zone string

const (
	ZoneTokyo23        Zone = "A" // Tokyo 23 wards
	ZoneTokyoSuburbs   Zone = "B" // Tokyo metro outside the wards
	ZoneDesignatedCity Zone = "C" // designated cities (Yokohama etc.)
	ZoneOther          Zone = "D" // everywhere else (Funabashi etc.)
)

var zoneLabels = map[Zone]string{
	ZoneTokyo23:        "A: Tokyo 23 wards",
	ZoneTokyoSuburbs:   "B: Tokyo suburbs",
	ZoneDesignatedCity: "C: designated cities",
	ZoneOther:          "D: other areas",
}

// Valid reports whether the zone belongs to the closed zone table.
func (z Zone) Valid() bool {
	_, ok := zoneLabels[z]
	return ok
}

// Label returns the human-readable zone name.
func (z Zone) Label() string {
	return zoneLabels[z]
}

// ParseZone maps a submitted string onto the closed zone enum.
func ParseZone(raw string) (Zone, error) {
	z := Zone(strings.ToUpper(strings.TrimSpace(raw)))
	if !z.Valid() {
		return "", fmt.Errorf("unknown zone %q", raw)
	}
	return z, nil
}

// UnitRecord is one row of the unit ledger: a single possession cycle of a
// physical battery, or an adjustment-only money entry with no unit behind
// it. Rows are mutated in place on every transition and never deleted, so
// the ledger doubles as the audit history. A serial may appear on several
// rows over time; at most one of them is in an active status.
type UnitRecord struct {
	// RowID is the synthetic store key (the sheet row number on the
	// production backend). Assigned by the store, never exposed.
	RowID          int        `json:"-"`
	Serial         string     `json:"serial"`
	Status         Status     `json:"status"`
	AcquiredAt     *time.Time `json:"acquired_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Zone           Zone       `json:"zone,omitempty"`
	Amount         int        `json:"amount"`
	Memo           string     `json:"memo,omitempty"`
	JobID          string     `json:"job_id,omitempty"`
	AdjustmentOnly bool       `json:"adjustment_only,omitempty"`
}

// Clone returns a deep copy, including the date pointers.
func (r UnitRecord) Clone() UnitRecord {
	cp := r
	if r.AcquiredAt != nil {
		acquired := *r.AcquiredAt
		cp.AcquiredAt = &acquired
	}
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		cp.CompletedAt = &completed
	}
	return cp
}

// DaysHeld returns the whole days between acquisition and the given date.
// Adjustment rows without an acquisition date report zero.
func (r UnitRecord) DaysHeld(today time.Time) int {
	if r.AcquiredAt == nil {
		return 0
	}
	return int(DateOf(today).Sub(DateOf(*r.AcquiredAt)) / (24 * time.Hour))
}

// DateOf truncates a wall-clock instant to its civil date, kept as a UTC
// midnight so date arithmetic stays timezone-free.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
