package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelLedger is a Ledger stored in a local .xlsx workbook. Changes are
// written back to disk on Close.
type ExcelLedger struct {
	file   *excelize.File
	path   string
	sheet  string
	logger *slog.Logger

	boldStyle  int
	plainStyle int
}

// OpenExcelLedger opens an existing workbook.
func OpenExcelLedger(path string, logger *slog.Logger) (*ExcelLedger, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	l, err := NewExcelLedger(f, path, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// NewExcelLedger wraps an already opened workbook that will be saved to path.
func NewExcelLedger(f *excelize.File, path string, logger *slog.Logger) (*ExcelLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create bold style: %w", err)
	}
	plain, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: false}})
	if err != nil {
		return nil, fmt.Errorf("failed to create plain style: %w", err)
	}
	return &ExcelLedger{
		file:       f,
		path:       path,
		logger:     logger.With(slog.String("component", "excel_ledger")),
		boldStyle:  bold,
		plainStyle: plain,
	}, nil
}

// SelectWorksheet implements Ledger.
func (e *ExcelLedger) SelectWorksheet(_ context.Context, name string) error {
	idx, err := e.file.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("failed to look up worksheet %q: %w", name, err)
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrWorksheetNotFound, name)
	}
	e.sheet = name
	return nil
}

// FindHeaderCell implements Ledger.
func (e *ExcelLedger) FindHeaderCell(_ context.Context, name string, fromRow int) (Cell, error) {
	if e.sheet == "" {
		return Cell{}, ErrNoWorksheet
	}
	rows, err := e.file.GetRows(e.sheet)
	if err != nil {
		return Cell{}, fmt.Errorf("failed to read rows: %w", err)
	}
	if fromRow < 1 {
		fromRow = 1
	}
	for i := fromRow - 1; i < len(rows); i++ {
		for j, v := range rows[i] {
			if strings.TrimSpace(v) == name {
				return Cell{Row: i + 1, Col: j + 1, Value: v}, nil
			}
		}
	}
	return Cell{}, fmt.Errorf("%w: %q from row %d", ErrCellNotFound, name, fromRow)
}

// ReadRange implements Ledger. Formula cells without a cached result are
// reported as their formula text.
func (e *ExcelLedger) ReadRange(_ context.Context, r1, c1, r2, c2 int) ([]Cell, error) {
	if e.sheet == "" {
		return nil, ErrNoWorksheet
	}
	var readErr error
	cells := cellsOf(r1, c1, r2, c2, func(row, col int) string {
		v, err := e.cellValue(CellName(row, col))
		if err != nil && readErr == nil {
			readErr = err
		}
		return v
	})
	if readErr != nil {
		return nil, readErr
	}
	return cells, nil
}

func (e *ExcelLedger) cellValue(ref string) (string, error) {
	v, err := e.file.GetCellValue(e.sheet, ref)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if v != "" {
		return v, nil
	}
	formula, err := e.file.GetCellFormula(e.sheet, ref)
	if err != nil {
		return "", fmt.Errorf("failed to read formula %s: %w", ref, err)
	}
	if formula != "" {
		return "=" + formula, nil
	}
	return "", nil
}

// ReadColumn implements Ledger.
func (e *ExcelLedger) ReadColumn(_ context.Context, index int) ([]string, error) {
	if e.sheet == "" {
		return nil, ErrNoWorksheet
	}
	cols, err := e.file.GetCols(e.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if index < 1 || index > len(cols) {
		return nil, nil
	}
	values := cols[index-1]
	last := len(values)
	for last > 0 && values[last-1] == "" {
		last--
	}
	return values[:last], nil
}

// WriteCell implements Ledger.
func (e *ExcelLedger) WriteCell(_ context.Context, row, col int, value string) error {
	if err := checkPosition(row, col); err != nil {
		return err
	}
	if e.sheet == "" {
		return ErrNoWorksheet
	}
	ref := CellName(row, col)
	if strings.HasPrefix(value, "=") {
		if err := e.file.SetCellFormula(e.sheet, ref, strings.TrimPrefix(value, "=")); err != nil {
			return fmt.Errorf("failed to write formula %s: %w", ref, err)
		}
		return nil
	}
	if err := e.file.SetCellValue(e.sheet, ref, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

// InsertBlankRows implements Ledger.
func (e *ExcelLedger) InsertBlankRows(_ context.Context, count, beforeRow int) error {
	if count <= 0 {
		return nil
	}
	if e.sheet == "" {
		return ErrNoWorksheet
	}
	if err := e.file.InsertRows(e.sheet, beforeRow, count); err != nil {
		return fmt.Errorf("failed to insert %d rows before row %d: %w", count, beforeRow, err)
	}
	return nil
}

// ApplyFormat implements Ledger.
func (e *ExcelLedger) ApplyFormat(_ context.Context, rng Range, f Format) error {
	if e.sheet == "" {
		return ErrNoWorksheet
	}
	style := e.plainStyle
	if f.Bold {
		style = e.boldStyle
	}
	if err := e.file.SetCellStyle(e.sheet, CellName(rng.FromRow, rng.FromCol), CellName(rng.ToRow, rng.ToCol), style); err != nil {
		return fmt.Errorf("failed to format %s: %w", rng.A1(), err)
	}
	return nil
}

// Close implements Ledger. The workbook is saved before it is closed.
func (e *ExcelLedger) Close() error {
	saveErr := e.file.SaveAs(e.path)
	closeErr := e.file.Close()
	if saveErr != nil {
		return fmt.Errorf("failed to save workbook %s: %w", e.path, saveErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close workbook %s: %w", e.path, closeErr)
	}
	e.logger.Info("workbook saved", slog.String("path", e.path))
	return nil
}
