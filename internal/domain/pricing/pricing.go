// Package pricing holds the payout rules for returned units: fixed zone
// base prices, the weekly volume-bonus tiers, the early-return bonus, and
// the Monday-based week arithmetic everything is counted against.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/hmiyata/battrack/internal/domain/models"
)

// ErrUnknownZone rejects pricing against a zone outside the closed table.
var ErrUnknownZone = errors.New("unknown pricing zone")

// basePrices is the fixed per-unit payout by zone, in yen.
var basePrices = map[models.Zone]int{
	models.ZoneTokyo23:        55,
	models.ZoneTokyoSuburbs:   65,
	models.ZoneDesignatedCity: 60,
	models.ZoneOther:          70,
}

// volumeTiers maps weekly returned counts to the per-unit bonus they earn,
// highest threshold first.
var volumeTiers = []struct {
	Count int
	Bonus int
}{
	{Count: 150, Bonus: 20},
	{Count: 100, Bonus: 15},
	{Count: 50, Bonus: 10},
	{Count: 20, Bonus: 5},
}

const (
	// EarlyReturnWindowDays is the longest holding duration that still
	// earns the early-return bonus.
	EarlyReturnWindowDays = 3
	// EarlyBonus is the flat per-unit early-return bonus, in yen.
	EarlyBonus = 10
)

// BasePrice looks up the fixed per-unit payout for a zone.
func BasePrice(zone models.Zone) (int, error) {
	price, ok := basePrices[zone]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	return price, nil
}

// VolumeBonus returns the per-unit bonus tier for a weekly returned count.
func VolumeBonus(weeklyCount int) int {
	for _, tier := range volumeTiers {
		if weeklyCount >= tier.Count {
			return tier.Bonus
		}
	}
	return 0
}

// NextTier reports the lowest volume tier still above the given weekly
// count. ok is false once the top tier is reached.
func NextTier(weeklyCount int) (target, bonus int, ok bool) {
	for i := len(volumeTiers) - 1; i >= 0; i-- {
		tier := volumeTiers[i]
		if weeklyCount < tier.Count {
			return tier.Count, tier.Bonus, true
		}
	}
	return 0, 0, false
}

// IsEarly reports whether a completion falls inside the early-return window
// counted in civil days from acquisition.
func IsEarly(acquiredAt, completedAt time.Time) bool {
	held := int(models.DateOf(completedAt).Sub(models.DateOf(acquiredAt)) / (24 * time.Hour))
	return held <= EarlyReturnWindowDays
}

// Price computes the full per-unit payout for one returned unit.
func Price(zone models.Zone, weeklyCount int, early bool) (int, error) {
	base, err := BasePrice(zone)
	if err != nil {
		return 0, err
	}
	price := base + VolumeBonus(weeklyCount)
	if early {
		price += EarlyBonus
	}
	return price, nil
}

// WeekStart truncates to the Monday 00:00 UTC opening the week that holds t.
func WeekStart(t time.Time) time.Time {
	day := models.DateOf(t)
	sinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -sinceMonday)
}

// SameWeek reports whether two instants fall inside one Monday-based week.
func SameWeek(a, b time.Time) bool {
	return WeekStart(a).Equal(WeekStart(b))
}

// InWeek reports whether t falls inside the week starting at weekStart.
func InWeek(t, weekStart time.Time) bool {
	day := models.DateOf(t)
	return !day.Before(weekStart) && day.Before(weekStart.AddDate(0, 0, 7))
}

// CountsTowardVolume reports whether a record participates in the weekly
// volume count: completed paying returns only, adjustment rows excluded.
func CountsTowardVolume(r models.UnitRecord) bool {
	return r.Status == models.StatusReturned && !r.AdjustmentOnly && r.CompletedAt != nil
}
