// Package config provides centralized configuration management for fiidy.
// It loads configuration from multiple sources, validates it, and exposes a
// type-safe struct to the rest of the application.
//
// # Configuration Sources
//
// Configuration is resolved in the following order of precedence:
//
//	1. Environment variables (highest priority), optionally seeded from .env
//	2. The YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// Environment variables follow the pattern FIIDY_<SECTION>_<FIELD>:
//
//	FIIDY_LEDGER_BACKEND=xlsx
//	FIIDY_LEDGER_DY_TAB_HEADER_ROW=3
//	FIIDY_SEARCH_BEFORE_DAYS_LIMIT=45
//	FIIDY_LOGGING_LEVEL=debug
//
// SPREADSHEET_ID and CREDENTIALS_PATH are also read without the prefix.
//
// # Configuration File
//
// The file mirrors the spreadsheet layout of the DY ledger:
//
//	spreadsheet:
//	  id: 1AbC...
//	  tickers_tab: FIIs
//	  dy_tab:
//	    name: DY
//	    header_row: 1
//	    tickers_column: {index: 1, name: FII}
//	    date_column: {index: 2, name: Data Base, format: 02/01/2006}
//	    dy_value_column: {index: 3, name: Rendimento}
//	    dy_ratio_column: {index: 7, name: DY}
//	    total_column: {index: 8, name: Total}
//	    dy_avg_column: {index: 9, name: DY Médio}
//	crawler:
//	  url_template: https://fiis.com.br/%s/
//	search:
//	  before_days_limit: 30
package config
