package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// headerScanColumns bounds the width of header searches.
const headerScanColumns = 52

// SheetsLedger is a Ledger backed by a Google Sheets spreadsheet.
type SheetsLedger struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *slog.Logger

	title   string
	sheetID int64
}

// NewSheetsLedger creates the Sheets service. Credentials and endpoints are
// passed as client options, e.g. option.WithCredentialsFile.
func NewSheetsLedger(ctx context.Context, spreadsheetID string, logger *slog.Logger, opts ...option.ClientOption) (*SheetsLedger, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsLedger{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger.With(slog.String("component", "sheets_ledger")),
	}, nil
}

// SelectWorksheet implements Ledger.
func (s *SheetsLedger) SelectWorksheet(ctx context.Context, name string) error {
	props, err := s.properties(ctx, name)
	if err != nil {
		return err
	}
	s.title = props.Title
	s.sheetID = props.SheetId
	s.logger.DebugContext(ctx, "worksheet selected",
		slog.String("worksheet", name),
		slog.Int64("sheet_id", props.SheetId))
	return nil
}

func (s *SheetsLedger) properties(ctx context.Context, name string) (*sheets.SheetProperties, error) {
	resp, err := s.service.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.wrap("read spreadsheet metadata", err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return sh.Properties, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrWorksheetNotFound, name)
}

func (s *SheetsLedger) rowCount(ctx context.Context) (int64, error) {
	props, err := s.properties(ctx, s.title)
	if err != nil {
		return 0, err
	}
	if props.GridProperties == nil {
		return 0, nil
	}
	return props.GridProperties.RowCount, nil
}

func (s *SheetsLedger) values(ctx context.Context, a1, dimension string) ([][]interface{}, error) {
	if s.title == "" {
		return nil, ErrNoWorksheet
	}
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(s.title, a1)).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension(dimension).
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.wrap("read "+a1, err)
	}
	return resp.Values, nil
}

// FindHeaderCell implements Ledger.
func (s *SheetsLedger) FindHeaderCell(ctx context.Context, name string, fromRow int) (Cell, error) {
	if fromRow < 1 {
		fromRow = 1
	}
	a1 := fmt.Sprintf("A%d:%s", fromRow, ColumnName(headerScanColumns))
	rows, err := s.values(ctx, a1, "ROWS")
	if err != nil {
		return Cell{}, err
	}
	for i, row := range rows {
		for j, v := range row {
			if strings.TrimSpace(fmt.Sprint(v)) == name {
				return Cell{Row: fromRow + i, Col: j + 1, Value: fmt.Sprint(v)}, nil
			}
		}
	}
	return Cell{}, fmt.Errorf("%w: %q from row %d", ErrCellNotFound, name, fromRow)
}

// ReadRange implements Ledger.
func (s *SheetsLedger) ReadRange(ctx context.Context, r1, c1, r2, c2 int) ([]Cell, error) {
	if r2 < r1 || c2 < c1 {
		return nil, nil
	}
	rows, err := s.values(ctx, Range{FromRow: r1, FromCol: c1, ToRow: r2, ToCol: c2}.A1(), "ROWS")
	if err != nil {
		return nil, err
	}
	return cellsOf(r1, c1, r2, c2, func(row, col int) string {
		i, j := row-r1, col-c1
		if i >= len(rows) || j >= len(rows[i]) {
			return ""
		}
		return fmt.Sprint(rows[i][j])
	}), nil
}

// ReadColumn implements Ledger.
func (s *SheetsLedger) ReadColumn(ctx context.Context, index int) ([]string, error) {
	col := ColumnName(index)
	cols, err := s.values(ctx, col+":"+col, "COLUMNS")
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}
	out := make([]string, len(cols[0]))
	for i, v := range cols[0] {
		out[i] = fmt.Sprint(v)
	}
	return out, nil
}

// WriteCell implements Ledger.
func (s *SheetsLedger) WriteCell(ctx context.Context, row, col int, value string) error {
	if err := checkPosition(row, col); err != nil {
		return err
	}
	if s.title == "" {
		return ErrNoWorksheet
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, sheetRange(s.title, CellName(row, col)), vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return s.wrap("write "+CellName(row, col), err)
	}
	return nil
}

// InsertBlankRows implements Ledger. When the batch update fails after the
// grid already grew by count rows, a PartialInsertError is returned.
func (s *SheetsLedger) InsertBlankRows(ctx context.Context, count, beforeRow int) error {
	if count <= 0 {
		return nil
	}
	if s.title == "" {
		return ErrNoWorksheet
	}
	before, err := s.rowCount(ctx)
	if err != nil {
		return err
	}

	req := &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:         s.sheetID,
				Dimension:       "ROWS",
				StartIndex:      int64(beforeRow - 1),
				EndIndex:        int64(beforeRow - 1 + count),
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
			InheritFromBefore: false,
		},
	}
	_, err = s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{req},
	}).Context(ctx).Do()
	if err == nil {
		return nil
	}

	after, countErr := s.rowCount(ctx)
	if countErr == nil && after >= before+int64(count) {
		return &PartialInsertError{Count: count, BeforeRow: beforeRow, Err: err}
	}
	return s.wrap(fmt.Sprintf("insert %d rows before row %d", count, beforeRow), err)
}

// ApplyFormat implements Ledger.
func (s *SheetsLedger) ApplyFormat(ctx context.Context, rng Range, f Format) error {
	if s.title == "" {
		return ErrNoWorksheet
	}
	req := &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          s.sheetID,
				StartRowIndex:    int64(rng.FromRow - 1),
				EndRowIndex:      int64(rng.ToRow),
				StartColumnIndex: int64(rng.FromCol - 1),
				EndColumnIndex:   int64(rng.ToCol),
				ForceSendFields:  []string{"SheetId"},
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					TextFormat: &sheets.TextFormat{Bold: f.Bold, ForceSendFields: []string{"Bold"}},
				},
			},
			Fields: "userEnteredFormat.textFormat.bold",
		},
	}
	_, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{req},
	}).Context(ctx).Do()
	if err != nil {
		return s.wrap("format "+rng.A1(), err)
	}
	return nil
}

// Close implements Ledger. The Sheets client holds no session to release.
func (s *SheetsLedger) Close() error {
	return nil
}

// wrap annotates API errors with the HTTP status so quota exhaustion is
// distinguishable from bad requests in logs.
func (s *SheetsLedger) wrap(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 {
			s.logger.Warn("sheets write quota exceeded", slog.String("operation", op))
		}
		return fmt.Errorf("sheets %s: status %d: %w", op, apiErr.Code, err)
	}
	return fmt.Errorf("sheets %s: %w", op, err)
}
