package config

import "time"

// Config is the complete application configuration. Values come from, in
// increasing precedence: built-in defaults, the YAML config file, .env and
// the process environment, then command-line flags.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Results     ResultsConfig     `mapstructure:"results"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Message     MessageConfig     `mapstructure:"message"`
	Fallback    FallbackConfig    `mapstructure:"fallback"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AdminToken enables POST /admin/signal when set.
	AdminToken string `mapstructure:"admin_token"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`

	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int  `mapstructure:"poll_timeout"`
	Debug       bool `mapstructure:"debug"`
}

// MarketplaceConfig describes the search page and how it is fetched.
type MarketplaceConfig struct {
	Name              string        `mapstructure:"name"`
	BaseURL           string        `mapstructure:"base_url"`
	SearchURL         string        `mapstructure:"search_url"`
	QueryParam        string        `mapstructure:"query_param"`
	SortParam         string        `mapstructure:"sort_param"`
	SortValue         string        `mapstructure:"sort_value"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`

	// Fetcher selects the transport: "http" or "colly".
	Fetcher string `mapstructure:"fetcher"`
}

// ResultsConfig bounds and orders extracted records.
type ResultsConfig struct {
	MaxResults int    `mapstructure:"max_results"`
	ScanLimit  int    `mapstructure:"scan_limit"`
	Ranking    string `mapstructure:"ranking"`
}

// RateLimitConfig is the per-user sliding window.
type RateLimitConfig struct {
	MaxRequests   int           `mapstructure:"max_requests"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// MessageConfig bounds outbound chat messages.
type MessageConfig struct {
	MaxLength int `mapstructure:"max_length"`
}

// FallbackConfig enables sample results when the marketplace fails.
type FallbackConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port. /metrics on the main
	// HTTP port proxies it.
	Port int `mapstructure:"port"`
}
