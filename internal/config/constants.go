package config

import "time"

// Application constants
const (
	AppName = "fiidy"

	// EnvPrefix namespaces every environment override, e.g. FIIDY_LEDGER_BACKEND.
	EnvPrefix = "FIIDY"
)

// AppVersion is overridden at link time by build.go.
var AppVersion = "1.0.0"

// Ledger backends
const (
	BackendSheets = "sheets"
	BackendExcel  = "xlsx"
	BackendMemory = "memory"
)

// Extraction sources
const (
	SourceHTTP    = "http"
	SourceBrowser = "browser"
)

const (
	// DefaultTickerPattern matches fund codes ending in the 11 suffix.
	DefaultTickerPattern = `^\w+11$`

	// DefaultDateFormat is the dd/mm/yyyy layout of the ledger date column.
	DefaultDateFormat = "02/01/2006"

	// DefaultWriteDelay keeps row writes under the Sheets per-minute write quota.
	DefaultWriteDelay = 5 * time.Second
)
