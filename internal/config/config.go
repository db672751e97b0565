package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Ledger    LedgerConfig    `yaml:"spreadsheet" envconfig:"LEDGER"`
	Crawler   CrawlerConfig   `yaml:"crawler" envconfig:"CRAWLER"`
	Search    SearchConfig    `yaml:"search" envconfig:"SEARCH"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// LedgerConfig describes where the DY ledger lives and how its grid is laid out.
type LedgerConfig struct {
	Backend         string        `yaml:"backend" envconfig:"BACKEND"`
	SpreadsheetID   string        `yaml:"id" envconfig:"SPREADSHEET_ID"`
	CredentialsPath string        `yaml:"credentials_path" envconfig:"CREDENTIALS_PATH"`
	WorkbookPath    string        `yaml:"workbook_path" envconfig:"WORKBOOK_PATH"`
	TickersTab      string        `yaml:"tickers_tab" envconfig:"TICKERS_TAB"`
	TickersTabCol   int           `yaml:"tickers_tab_column" envconfig:"TICKERS_TAB_COLUMN"`
	TickerPattern   string        `yaml:"ticker_pattern" envconfig:"TICKER_PATTERN"`
	WriteDelay      time.Duration `yaml:"write_delay" envconfig:"WRITE_DELAY"`
	DYTab           DYTabConfig   `yaml:"dy_tab" envconfig:"DY_TAB"`
}

// DYTabConfig is the fixed columnar convention of a historical block.
type DYTabConfig struct {
	Name          string           `yaml:"name" envconfig:"NAME"`
	HeaderRow     int              `yaml:"header_row" envconfig:"HEADER_ROW"`
	TickersColumn ColumnConfig     `yaml:"tickers_column" envconfig:"TICKERS_COLUMN"`
	DateColumn    DateColumnConfig `yaml:"date_column" envconfig:"DATE_COLUMN"`
	ValueColumn   ColumnConfig     `yaml:"dy_value_column" envconfig:"VALUE_COLUMN"`
	RatioColumn   ColumnConfig     `yaml:"dy_ratio_column" envconfig:"RATIO_COLUMN"`
	TotalColumn   ColumnConfig     `yaml:"total_column" envconfig:"TOTAL_COLUMN"`
	AverageColumn ColumnConfig     `yaml:"dy_avg_column" envconfig:"AVERAGE_COLUMN"`
}

// ColumnConfig addresses a ledger column by 1-based index and header name.
type ColumnConfig struct {
	Index int    `yaml:"index" envconfig:"INDEX"`
	Name  string `yaml:"name" envconfig:"NAME"`
}

// DateColumnConfig adds the Go time layout used for reference dates.
type DateColumnConfig struct {
	Index  int    `yaml:"index" envconfig:"INDEX"`
	Name   string `yaml:"name" envconfig:"NAME"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// CrawlerConfig drives the dividend page extraction
type CrawlerConfig struct {
	Source            string        `yaml:"source" envconfig:"SOURCE"`
	URLTemplate       string        `yaml:"url_template" envconfig:"URL_TEMPLATE"`
	SiteComponent     string        `yaml:"site_component" envconfig:"SITE_COMPONENT"`
	DateHeader        string        `yaml:"date_header" envconfig:"DATE_HEADER"`
	ValueHeader       string        `yaml:"value_header" envconfig:"VALUE_HEADER"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT"`
	Concurrency       int           `yaml:"concurrency" envconfig:"CONCURRENCY"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Headless          bool          `yaml:"headless" envconfig:"HEADLESS"`
	BreakerFailures   uint32        `yaml:"breaker_failures" envconfig:"BREAKER_FAILURES"`
	BreakerCooldown   time.Duration `yaml:"breaker_cooldown" envconfig:"BREAKER_COOLDOWN"`
}

// SearchConfig holds the freshness window
type SearchConfig struct {
	BeforeDaysLimit  int  `yaml:"before_days_limit" envconfig:"BEFORE_DAYS_LIMIT"`
	FreshnessLimited bool `yaml:"freshness_limited" envconfig:"FRESHNESS_LIMITED"`
}

// CacheConfig configures the optional Redis record cache. An empty address disables it.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"REDIS_DB"`
	Prefix        string        `yaml:"prefix" envconfig:"PREFIX"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL"`
}

// ServerConfig contains HTTP server and scheduler configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	Schedule        time.Duration   `yaml:"schedule" envconfig:"SCHEDULE"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// TelemetryConfig selects OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load loads configuration from defaults, the YAML file, .env and environment variables.
// Precedence: environment > config file > defaults.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.applyLegacyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values on cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyLegacyEnv honors the unprefixed variables used by earlier deployments.
func (c *Config) applyLegacyEnv() {
	if c.Ledger.SpreadsheetID == "" {
		c.Ledger.SpreadsheetID = os.Getenv("SPREADSHEET_ID")
	}
	if c.Ledger.CredentialsPath == "" {
		c.Ledger.CredentialsPath = os.Getenv("CREDENTIALS_PATH")
	}
}

// Validate checks the configuration and normalizes logging options.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendSheets:
		if c.Ledger.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet id is required for the %q backend", BackendSheets)
		}
	case BackendExcel:
		if c.Ledger.WorkbookPath == "" {
			return fmt.Errorf("workbook path is required for the %q backend", BackendExcel)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown ledger backend: %q", c.Ledger.Backend)
	}

	tab := c.Ledger.DYTab
	if tab.Name == "" || c.Ledger.TickersTab == "" {
		return fmt.Errorf("dy tab and tickers tab names are required")
	}
	if tab.HeaderRow <= 0 {
		return fmt.Errorf("invalid header row: %d", tab.HeaderRow)
	}
	columns := map[string]int{
		"tickers_column":  tab.TickersColumn.Index,
		"date_column":     tab.DateColumn.Index,
		"dy_value_column": tab.ValueColumn.Index,
		"dy_ratio_column": tab.RatioColumn.Index,
		"total_column":    tab.TotalColumn.Index,
		"dy_avg_column":   tab.AverageColumn.Index,
		"tickers_tab_col": c.Ledger.TickersTabCol,
	}
	for name, idx := range columns {
		if idx <= 0 {
			return fmt.Errorf("invalid %s index: %d", name, idx)
		}
	}
	if tab.ValueColumn.Name == "" {
		return fmt.Errorf("dy value column name is required")
	}
	if tab.TotalColumn.Index > tab.AverageColumn.Index {
		return fmt.Errorf("total column (%d) must not be right of the average column (%d)",
			tab.TotalColumn.Index, tab.AverageColumn.Index)
	}
	if err := checkDateLayout(tab.DateColumn.Format); err != nil {
		return err
	}
	if _, err := regexp.Compile(c.Ledger.TickerPattern); err != nil {
		return fmt.Errorf("invalid ticker pattern: %w", err)
	}
	if c.Ledger.WriteDelay < 0 {
		return fmt.Errorf("write delay must not be negative")
	}

	if c.Search.BeforeDaysLimit < 0 {
		return fmt.Errorf("before_days_limit must not be negative")
	}

	switch c.Crawler.Source {
	case SourceHTTP, SourceBrowser:
	default:
		return fmt.Errorf("unknown crawler source: %q", c.Crawler.Source)
	}
	if !strings.Contains(c.Crawler.URLTemplate, "%s") {
		return fmt.Errorf("crawler url template must contain %%s")
	}
	if c.Crawler.Concurrency <= 0 {
		c.Crawler.Concurrency = 1
	}
	if c.Crawler.RequestsPerSecond < 0 {
		return fmt.Errorf("crawler requests_per_second must not be negative")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/fiidy.log"
	}

	return nil
}

// checkDateLayout rejects layouts that would not round-trip a calendar day.
func checkDateLayout(layout string) error {
	if layout == "" {
		return fmt.Errorf("date format is required")
	}
	probe := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	parsed, err := time.Parse(layout, probe.Format(layout))
	if err != nil || !parsed.Equal(probe) {
		return fmt.Errorf("date format %q does not round-trip a calendar date", layout)
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/fiidy.log",
		},
		Ledger: LedgerConfig{
			Backend:       BackendSheets,
			TickersTab:    "FIIs",
			TickersTabCol: 1,
			TickerPattern: DefaultTickerPattern,
			WriteDelay:    DefaultWriteDelay,
			DYTab: DYTabConfig{
				Name:          "DY",
				HeaderRow:     1,
				TickersColumn: ColumnConfig{Index: 1, Name: "FII"},
				DateColumn:    DateColumnConfig{Index: 2, Name: "Data Base", Format: DefaultDateFormat},
				ValueColumn:   ColumnConfig{Index: 3, Name: "Rendimento"},
				RatioColumn:   ColumnConfig{Index: 7, Name: "DY"},
				TotalColumn:   ColumnConfig{Index: 8, Name: "Total"},
				AverageColumn: ColumnConfig{Index: 9, Name: "DY Médio"},
			},
		},
		Crawler: CrawlerConfig{
			Source:            SourceHTTP,
			URLTemplate:       "https://fiis.com.br/%s/",
			SiteComponent:     "#last-revenues--table, .yieldChart__table",
			DateHeader:        "Data Base",
			ValueHeader:       "Rendimento",
			UserAgent:         "fiidy/" + AppVersion,
			Concurrency:       1,
			RequestsPerSecond: 1,
			Timeout:           30 * time.Second,
			Headless:          true,
			BreakerFailures:   5,
			BreakerCooldown:   time.Minute,
		},
		Search: SearchConfig{
			BeforeDaysLimit:  30,
			FreshnessLimited: true,
		},
		Cache: CacheConfig{
			Prefix: "fiidy",
			TTL:    7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			Schedule:        24 * time.Hour,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     1,
				Burst:   5,
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
