// Package config loads typed ShopGenie configuration through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shopgenie/shopgenie/internal/core/extractor"
	"github.com/shopgenie/shopgenie/internal/output"
)

// Application identity used for env prefix and config discovery.
const (
	AppName   = "shopgenie"
	EnvPrefix = "SHOPGENIE"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit YAML path. Empty means discover config.yaml
	// in the XDG config dir and ./config.
	ConfigFile string

	// DotEnvFiles are loaded before reading the environment. Missing files
	// are ignored. Nil means ".env".
	DotEnvFiles []string
}

// SetDefaults registers every known key so env overrides resolve through
// AllSettings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.debug", false)

	v.SetDefault("marketplace.name", "AliExpress")
	v.SetDefault("marketplace.base_url", "https://www.aliexpress.com")
	v.SetDefault("marketplace.search_url", "https://www.aliexpress.com/wholesale")
	v.SetDefault("marketplace.query_param", "SearchText")
	v.SetDefault("marketplace.sort_param", "SortType")
	v.SetDefault("marketplace.sort_value", "total_tranpro_desc")
	v.SetDefault("marketplace.user_agent", extractor.DefaultUserAgent)
	v.SetDefault("marketplace.timeout", "10s")
	v.SetDefault("marketplace.max_attempts", 3)
	v.SetDefault("marketplace.retry_delay", "1s")
	v.SetDefault("marketplace.requests_per_second", 1.0)
	v.SetDefault("marketplace.burst", 2)
	v.SetDefault("marketplace.fetcher", "http")

	v.SetDefault("results.max_results", 4)
	v.SetDefault("results.scan_limit", 10)
	v.SetDefault("results.ranking", "none")

	v.SetDefault("rate_limit.max_requests", 10)
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("rate_limit.sweep_interval", "5m")

	v.SetDefault("message.max_length", 4096)

	v.SetDefault("fallback.enabled", false)
	v.SetDefault("fallback.catalog_path", "")

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// Load reads configuration into v and decodes it. A missing config file is
// not an error; a malformed one is.
func Load(v *viper.Viper, opts Options) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if err := loadDotEnv(opts.DotEnvFiles); err != nil {
		return nil, err
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("telegram.token", EnvPrefix+"_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind telegram token env: %w", err)
	}

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode converts a settings map into Config with duration and slice hooks.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var problems []string
	positive := func(name string, value int64) {
		if value <= 0 {
			problems = append(problems, name+" must be positive")
		}
	}

	positive("server.port", int64(c.Server.Port))
	positive("server.shutdown_timeout", int64(c.Server.ShutdownTimeout))
	positive("telegram.poll_timeout", int64(c.Telegram.PollTimeout))
	positive("marketplace.timeout", int64(c.Marketplace.Timeout))
	positive("marketplace.max_attempts", int64(c.Marketplace.MaxAttempts))
	positive("results.max_results", int64(c.Results.MaxResults))
	positive("results.scan_limit", int64(c.Results.ScanLimit))
	positive("rate_limit.max_requests", int64(c.RateLimit.MaxRequests))
	positive("rate_limit.window", int64(c.RateLimit.Window))
	positive("rate_limit.sweep_interval", int64(c.RateLimit.SweepInterval))
	positive("message.max_length", int64(c.Message.MaxLength))

	if c.Message.MaxLength > output.DefaultMaxLength {
		problems = append(problems, fmt.Sprintf("message.max_length must not exceed %d", output.DefaultMaxLength))
	}
	if c.Marketplace.RetryDelay < 0 {
		problems = append(problems, "marketplace.retry_delay must not be negative")
	}
	if c.Marketplace.RequestsPerSecond < 0 {
		problems = append(problems, "marketplace.requests_per_second must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Port < 0 {
		problems = append(problems, "metrics.port must not be negative")
	}
	for name, raw := range map[string]string{
		"marketplace.base_url":   c.Marketplace.BaseURL,
		"marketplace.search_url": c.Marketplace.SearchURL,
	} {
		if !absoluteHTTPURL(raw) {
			problems = append(problems, name+" must be an absolute http(s) URL")
		}
	}
	switch strings.ToLower(c.Marketplace.Fetcher) {
	case "http", "colly":
	default:
		problems = append(problems, fmt.Sprintf("marketplace.fetcher %q must be http or colly", c.Marketplace.Fetcher))
	}
	switch strings.ToLower(c.Results.Ranking) {
	case "", "none", "score":
	default:
		problems = append(problems, fmt.Sprintf("results.ranking %q must be none or score", c.Results.Ranking))
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return &ValidationError{Problems: problems}
}

// ValidationError lists every invalid setting.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// GetConfig returns the last successfully loaded configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir is the XDG config directory for the app.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	if dir := DefaultConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func loadDotEnv(files []string) error {
	if files == nil {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func absoluteHTTPURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
