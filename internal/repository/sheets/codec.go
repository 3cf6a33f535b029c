package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hmiyata/battrack/internal/domain/models"
)

// Ledger worksheet layout, columns A through I. Row 1 is the header; data
// starts at firstDataRow.
const (
	colSerial = iota
	colStatus
	colAcquiredAt
	colCompletedAt
	colZone
	colAmount
	colMemo
	colJobID
	colAdjustmentOnly

	columnCount
)

const firstDataRow = 2

// encodeRecord turns a record into one sheet row, columns A through I.
func encodeRecord(r models.UnitRecord) []interface{} {
	return []interface{}{
		r.Serial,
		string(r.Status),
		encodeDate(r.AcquiredAt),
		encodeDate(r.CompletedAt),
		string(r.Zone),
		strconv.Itoa(r.Amount),
		r.Memo,
		r.JobID,
		encodeBool(r.AdjustmentOnly),
	}
}

// decodeRecord parses one sheet row. The sheet API trims trailing empty
// cells, so short rows are padded by the cell accessors.
func decodeRecord(rowID int, cells []interface{}) (models.UnitRecord, error) {
	record := models.UnitRecord{RowID: rowID}

	record.Serial = cellString(cells, colSerial)
	if record.Serial == "" {
		return record, fmt.Errorf("row %d: empty serial", rowID)
	}

	status, err := models.ParseStatus(cellString(cells, colStatus))
	if err != nil {
		return record, fmt.Errorf("row %d: %w", rowID, err)
	}
	record.Status = status

	if record.AcquiredAt, err = decodeDate(cellString(cells, colAcquiredAt)); err != nil {
		return record, fmt.Errorf("row %d: acquired_at: %w", rowID, err)
	}
	if record.CompletedAt, err = decodeDate(cellString(cells, colCompletedAt)); err != nil {
		return record, fmt.Errorf("row %d: completed_at: %w", rowID, err)
	}

	record.Zone = models.Zone(cellString(cells, colZone))
	if record.Amount, err = decodeAmount(cellString(cells, colAmount)); err != nil {
		return record, fmt.Errorf("row %d: amount: %w", rowID, err)
	}
	record.Memo = cellString(cells, colMemo)
	record.JobID = cellString(cells, colJobID)
	record.AdjustmentOnly = decodeBool(cellString(cells, colAdjustmentOnly))
	return record, nil
}

// cellString reads a cell as trimmed text, tolerating short rows.
func cellString(cells []interface{}, index int) string {
	if index >= len(cells) || cells[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(cells[index]))
}

func encodeDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(models.DateLayout)
}

func decodeDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	// Manually edited cells sometimes carry a time suffix.
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	parsed, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func decodeAmount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func encodeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// decodeBool accepts the checkbox spellings Sheets produces; anything
// unrecognized reads as false.
func decodeBool(s string) bool {
	parsed, err := strconv.ParseBool(strings.ToLower(s))
	return err == nil && parsed
}
