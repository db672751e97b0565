package reconcile

import (
	"log/slog"
)

// Registration summarizes how far the active block has been filled.
type Registration struct {
	Filled        int
	NotRegistered []string
	Missing       []string
}

// CheckRegistration compares the expected tickers with the block and the
// store. A mismatch between expected and extracted counts is logged only.
func CheckRegistration(logger *slog.Logger, expected []string, block Block, store *RecordStore) Registration {
	if logger == nil {
		logger = slog.Default()
	}
	reg := Registration{Filled: block.Filled()}
	for _, t := range expected {
		if !block.Registered(t) {
			reg.NotRegistered = append(reg.NotRegistered, NormalizeTicker(t))
		}
	}
	logger.Info("tickers not registered yet",
		slog.Any("tickers", reg.NotRegistered),
		slog.Int("count", len(reg.NotRegistered)))

	if len(expected) != store.Len() {
		reg.Missing = store.Missing(expected)
		logger.Warn("expected ticker count does not match extracted records",
			slog.Int("expected", len(expected)),
			slog.Int("extracted", store.Len()),
			slog.Any("not_found", reg.Missing))
	}

	logger.Info("registration state",
		slog.Int("filled_cells", reg.Filled),
		slog.Int("block_rows", block.Size()),
		slog.Int("records", store.Len()),
		slog.Int("expected", len(expected)))
	return reg
}
