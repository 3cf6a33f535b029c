package models

import "time"

// StocktakeFindings is the three-way diff between the units physically in
// hand and the recorded active inventory. The three buckets are disjoint.
type StocktakeFindings struct {
	NewInHand     []SerialDate   `json:"new_in_hand"`
	MissingInHand []MissingUnit  `json:"missing_in_hand"`
	DateMismatch  []DateMismatch `json:"date_mismatch"`
}

// Clean reports whether the stocktake found nothing to correct.
func (f StocktakeFindings) Clean() bool {
	return len(f.NewInHand) == 0 && len(f.MissingInHand) == 0 && len(f.DateMismatch) == 0
}

// MissingUnit is a recorded active unit that was not observed in hand.
type MissingUnit struct {
	Serial     string     `json:"serial"`
	Status     Status     `json:"status"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
}

// DateMismatch flags a unit whose recorded acquisition date disagrees with
// the observed one.
type DateMismatch struct {
	Serial   string    `json:"serial"`
	Recorded time.Time `json:"recorded"`
	Observed time.Time `json:"observed"`
}
