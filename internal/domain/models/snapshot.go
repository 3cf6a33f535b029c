package models

import "time"

// WeeklySnapshot is the archived form of a weekly KPI block.
type WeeklySnapshot struct {
	WeekStart      time.Time `bson:"week_start" json:"week_start"`
	ReturnedCount  int       `bson:"returned_count" json:"returned_count"`
	VolumeBonus    int       `bson:"volume_bonus" json:"volume_bonus"`
	WeeklyEarnings int       `bson:"weekly_earnings" json:"weekly_earnings"`
	TotalEarnings  int       `bson:"total_earnings" json:"total_earnings"`
	ActiveCount    int       `bson:"active_count" json:"active_count"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
