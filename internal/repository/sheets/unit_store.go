// Package sheets implements the unit ledger on a Google Sheets worksheet,
// one record per row. The sheet row number doubles as the record's RowID,
// which is what lets transitions rewrite rows in place.
package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/hmiyata/battrack/internal/config"
	"github.com/hmiyata/battrack/internal/domain/models"
)

// callTimeout bounds every sheet API call; callers never pass deadlines of
// their own for store operations.
const callTimeout = 30 * time.Second

// valueInputOption keeps cell values verbatim so serials with leading
// zeros survive the round trip.
const valueInputOption = "RAW"

// UnitStore is the Google Sheets backed record store.
type UnitStore struct {
	service       *sheetsapi.Service
	spreadsheetID string
	tab           string
	logger        *zap.Logger
}

// NewUnitStore authenticates against the Sheets API with a service-account
// credentials file and binds to the configured worksheet.
func NewUnitStore(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*UnitStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &UnitStore{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		tab:           cfg.UnitsTab,
		logger:        logger,
	}, nil
}

// ListRecords reads the whole ledger below the header row. Rows that fail
// to decode are logged and skipped rather than failing the snapshot.
func (s *UnitStore) ListRecords(ctx context.Context) ([]models.UnitRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	readRange := fmt.Sprintf("%s!A%d:I", s.tab, firstDataRow)
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}

	records := make([]models.UnitRecord, 0, len(resp.Values))
	for i, cells := range resp.Values {
		rowID := firstDataRow + i
		record, err := decodeRecord(rowID, cells)
		if err != nil {
			s.logger.Debug("skipping unreadable ledger row", zap.Int("row", rowID), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// AppendRecords appends the records below the existing data.
func (s *UnitStore) AppendRecords(ctx context.Context, records []models.UnitRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	rows := make([][]interface{}, 0, len(records))
	for _, record := range records {
		rows = append(rows, encodeRecord(record))
	}

	appendRange := fmt.Sprintf("%s!A:I", s.tab)
	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, appendRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append %d rows to %s: %w", len(rows), appendRange, err)
	}

	s.logger.Debug("ledger rows appended", zap.Int("rows", len(rows)))
	return nil
}

// UpdateMatching loads a snapshot, applies patch to every matching record,
// and writes the changed rows back in a single batch keyed by row number.
func (s *UnitStore) UpdateMatching(ctx context.Context, match func(models.UnitRecord) bool, patch func(record *models.UnitRecord)) (int, error) {
	records, err := s.ListRecords(ctx)
	if err != nil {
		return 0, err
	}

	var data []*sheetsapi.ValueRange
	for _, record := range records {
		if !match(record) {
			continue
		}
		rowID := record.RowID
		patch(&record)
		record.RowID = rowID
		data = append(data, &sheetsapi.ValueRange{
			Range:  fmt.Sprintf("%s!A%d:I%d", s.tab, rowID, rowID),
			Values: [][]interface{}{encodeRecord(record)},
		})
	}
	if len(data) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             data,
	}
	if _, err := s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("failed to update %d ledger rows: %w", len(data), err)
	}

	s.logger.Debug("ledger rows updated", zap.Int("rows", len(data)))
	return len(data), nil
}
