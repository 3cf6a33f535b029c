package models

import "time"

// WeeklySummary is the KPI block for one Monday-based week.
type WeeklySummary struct {
	WeekStart         time.Time `json:"week_start"`
	ReturnedCount     int       `json:"returned_count"`
	VolumeBonus       int       `json:"volume_bonus"`
	NextTierTarget    int       `json:"next_tier_target,omitempty"`
	NextTierRemaining int       `json:"next_tier_remaining,omitempty"`
	WeeklyEarnings    int       `json:"weekly_earnings"`
	TotalEarnings     int       `json:"total_earnings"`
	ActiveCount       int       `json:"active_count"`
}

// PickupCandidate ranks an active unit for the next return run.
type PickupCandidate struct {
	Serial          string    `json:"serial"`
	AcquiredAt      time.Time `json:"acquired_at"`
	DaysHeld        int       `json:"days_held"`
	PenaltyDaysLeft int       `json:"penalty_days_left"`
	Rank            int       `json:"rank"`
}

// SuffixSearchResult groups the serial-suffix hits by liveness. History is
// sorted most recent completion first so the top entry answers the usual
// question of when the unit left.
type SuffixSearchResult struct {
	Active  []UnitRecord `json:"active"`
	History []UnitRecord `json:"history,omitempty"`
}
