package models

import (
	"fmt"
	"strings"
	"time"
)

// IntakeRequest carries pasted report text for registration or preview.
type IntakeRequest struct {
	Text string `json:"text" binding:"required"`
	// DefaultDate backs serials whose lines carry no date, YYYY-MM-DD.
	// Today when empty.
	DefaultDate string `json:"default_date"`
}

// ReturnBatchRequest confirms a batch of physical returns for payment.
// Serials may be given directly or pasted as free text.
type ReturnBatchRequest struct {
	Serials []string `json:"serials"`
	Text    string   `json:"text"`
	Zone    string   `json:"zone" binding:"required"`
	Date    string   `json:"date"`
	Memo    string   `json:"memo"`
	JobID   string   `json:"job_id"`
}

// DeployRequest flags in-stock units as checked out for a job.
type DeployRequest struct {
	Serials []string `json:"serials"`
	Text    string   `json:"text"`
	JobID   string   `json:"job_id"`
}

// ArchiveRequest closes units under a non-paying terminal status.
type ArchiveRequest struct {
	Serials []string `json:"serials"`
	Text    string   `json:"text"`
	Status  string   `json:"status" binding:"required"`
	Date    string   `json:"date"`
	Memo    string   `json:"memo"`
	JobID   string   `json:"job_id"`
}

// AdjustmentRequest appends a money-only ledger entry.
type AdjustmentRequest struct {
	Label  string `json:"label"`
	Date   string `json:"date"`
	Amount int    `json:"amount" binding:"required"`
	Memo   string `json:"memo"`
}

// SerialDatePayload is the wire form of a (serial, date) pair.
type SerialDatePayload struct {
	Serial     string `json:"serial" binding:"required"`
	AcquiredAt string `json:"acquired_at" binding:"required"`
}

// Pair converts the payload, validating its date.
func (p SerialDatePayload) Pair() (SerialDate, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(p.AcquiredAt))
	if err != nil {
		return SerialDate{}, fmt.Errorf("invalid date %q for serial %s, want YYYY-MM-DD", p.AcquiredAt, p.Serial)
	}
	return SerialDate{Serial: strings.TrimSpace(p.Serial), AcquiredAt: parsed}, nil
}

// StocktakeBufferRequest adds pasted text to the stocktake buffer.
type StocktakeBufferRequest struct {
	Text string `json:"text" binding:"required"`
	// DefaultDate backs observed serials without a date of their own.
	DefaultDate string `json:"default_date"`
}

// StocktakeApplyRequest selects which confirmed findings to write back.
// Every bucket is optional; each one is applied through the normal
// lifecycle guards.
type StocktakeApplyRequest struct {
	Register  []SerialDatePayload `json:"register"`
	Archive   []string            `json:"archive"`
	DateFixes []SerialDatePayload `json:"date_fixes"`
	// Date is the completion date for archived ghosts, YYYY-MM-DD. Today
	// when empty.
	Date  string `json:"date"`
	JobID string `json:"job_id"`
}
