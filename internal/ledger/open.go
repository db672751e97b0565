package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"fiidy/internal/config"
)

// Open acquires the ledger backend selected by cfg. The caller owns the
// returned handle and must Close it when the run ends.
func Open(ctx context.Context, cfg config.LedgerConfig, logger *slog.Logger) (Ledger, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		var opts []option.ClientOption
		if cfg.CredentialsPath != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
		}
		return NewSheetsLedger(ctx, cfg.SpreadsheetID, logger, opts...)
	case config.BackendExcel:
		return OpenExcelLedger(cfg.WorkbookPath, logger)
	case config.BackendMemory:
		return NewMemoryLedger(cfg.TickersTab, cfg.DYTab.Name), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %q", cfg.Backend)
	}
}
