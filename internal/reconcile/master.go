package reconcile

import (
	"context"
	"fmt"

	"fiidy/internal/ledger"
)

// ReadMasterList reads the tickers column of the tickers tab, keeping the
// cells that match the fund code pattern. Order is preserved and
// duplicates are dropped.
func ReadMasterList(ctx context.Context, l ledger.Ledger, layout Layout) ([]string, error) {
	if err := l.SelectWorksheet(ctx, layout.TickersTab); err != nil {
		return nil, fmt.Errorf("select tickers tab: %w", err)
	}
	values, err := l.ReadColumn(ctx, layout.TickersTabCol)
	if err != nil {
		return nil, fmt.Errorf("read master tickers: %w", err)
	}

	seen := make(map[string]bool, len(values))
	var master []string
	for _, v := range values {
		t := NormalizeTicker(v)
		if t == "" || seen[t] {
			continue
		}
		if layout.TickerPattern != nil && !layout.TickerPattern.MatchString(t) {
			continue
		}
		seen[t] = true
		master = append(master, t)
	}
	return master, nil
}
