package reconcile

import (
	"fmt"
	"regexp"
	"time"

	"fiidy/internal/config"
)

// Layout is the fixed columnar convention of the DY ledger. Column
// indices are 1-based.
type Layout struct {
	TickersTab    string
	TickersTabCol int
	TickerPattern *regexp.Regexp

	DYTab        string
	HeaderRow    int
	TickerHeader string
	ValueHeader  string

	TickerCol  int
	DateCol    int
	ValueCol   int
	RatioCol   int
	TotalCol   int
	AverageCol int

	// DateFormat is a Go time layout, "02/01/2006" for dd/mm/yyyy.
	DateFormat string
	DaysLimit  int
	WriteDelay time.Duration
}

// LayoutFromConfig builds the layout from the spreadsheet and search sections.
func LayoutFromConfig(cfg *config.Config) (Layout, error) {
	pattern, err := regexp.Compile(cfg.Ledger.TickerPattern)
	if err != nil {
		return Layout{}, fmt.Errorf("invalid ticker pattern: %w", err)
	}
	tab := cfg.Ledger.DYTab
	return Layout{
		TickersTab:    cfg.Ledger.TickersTab,
		TickersTabCol: cfg.Ledger.TickersTabCol,
		TickerPattern: pattern,
		DYTab:         tab.Name,
		HeaderRow:     tab.HeaderRow,
		TickerHeader:  tab.TickersColumn.Name,
		ValueHeader:   tab.ValueColumn.Name,
		TickerCol:     tab.TickersColumn.Index,
		DateCol:       tab.DateColumn.Index,
		ValueCol:      tab.ValueColumn.Index,
		RatioCol:      tab.RatioColumn.Index,
		TotalCol:      tab.TotalColumn.Index,
		AverageCol:    tab.AverageColumn.Index,
		DateFormat:    tab.DateColumn.Format,
		DaysLimit:     cfg.Search.BeforeDaysLimit,
		WriteDelay:    cfg.Ledger.WriteDelay,
	}, nil
}

// DefaultLayout is the layout of a ledger built with the default configuration.
func DefaultLayout() Layout {
	l, _ := LayoutFromConfig(config.Default())
	return l
}
