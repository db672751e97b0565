package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"fiidy/internal/reconcile"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Headers is the column layout of an exported record file.
var Headers = []string{"FII", "Data Base", "Rendimento"}

// CSVWriter exports record snapshots.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "exporter"))}
}

// WriteFile writes records to path, creating parent directories.
// Tickers the source had nothing for are exported with empty cells.
func (w *CSVWriter) WriteFile(path string, records []reconcile.Record) error {
	w.logger.Info("writing CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", len(records)))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := w.Write(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Write streams records to out with the BOM and header row.
func (w *CSVWriter) Write(out io.Writer, records []reconcile.Record) error {
	if _, err := out.Write(bom); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, r := range records {
		if err := cw.Write([]string{r.Ticker, r.Date, r.Value}); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
