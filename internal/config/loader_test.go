package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) Options {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return Options{DotEnvFiles: []string{}}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), isolate(t))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, 60, cfg.Telegram.PollTimeout)

	assert.Equal(t, "AliExpress", cfg.Marketplace.Name)
	assert.Equal(t, "https://www.aliexpress.com/wholesale", cfg.Marketplace.SearchURL)
	assert.Equal(t, "SearchText", cfg.Marketplace.QueryParam)
	assert.Equal(t, 10*time.Second, cfg.Marketplace.Timeout)
	assert.Equal(t, 3, cfg.Marketplace.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Marketplace.RetryDelay)
	assert.InDelta(t, 1.0, cfg.Marketplace.RequestsPerSecond, 0.0001)
	assert.Equal(t, "http", cfg.Marketplace.Fetcher)

	assert.Equal(t, 4, cfg.Results.MaxResults)
	assert.Equal(t, 10, cfg.Results.ScanLimit)
	assert.Equal(t, "none", cfg.Results.Ranking)

	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.SweepInterval)
	assert.Equal(t, 4096, cfg.Message.MaxLength)

	assert.False(t, cfg.Fallback.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfigFile(t *testing.T) {
	opts := isolate(t)
	opts.ConfigFile = writeFile(t, "config.yaml", `
rate_limit:
  max_requests: 3
  window: 30s
results:
  ranking: score
marketplace:
  fetcher: colly
  search_url: https://market.test/search
`)

	cfg, err := Load(viper.New(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "score", cfg.Results.Ranking)
	assert.Equal(t, "colly", cfg.Marketplace.Fetcher)
	assert.Equal(t, "https://market.test/search", cfg.Marketplace.SearchURL)
	assert.Equal(t, 4, cfg.Results.MaxResults)
}

func TestLoadEnvOverrides(t *testing.T) {
	opts := isolate(t)
	t.Setenv("SHOPGENIE_SERVER_PORT", "9999")
	t.Setenv("SHOPGENIE_RATE_LIMIT_WINDOW", "2m")
	t.Setenv("SHOPGENIE_FALLBACK_ENABLED", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load(viper.New(), opts)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.Fallback.Enabled)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
}

func TestPrefixedTokenWinsOverAlias(t *testing.T) {
	opts := isolate(t)
	t.Setenv("SHOPGENIE_TELEGRAM_TOKEN", "primary")
	t.Setenv("TELEGRAM_BOT_TOKEN", "alias")

	cfg, err := Load(viper.New(), opts)
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Telegram.Token)
}

func TestLoadDotEnv(t *testing.T) {
	opts := isolate(t)
	opts.DotEnvFiles = []string{writeFile(t, ".env", "SHOPGENIE_MESSAGE_MAX_LENGTH=2048\n")}
	t.Cleanup(func() { _ = os.Unsetenv("SHOPGENIE_MESSAGE_MAX_LENGTH") })

	cfg, err := Load(viper.New(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Message.MaxLength)
}

func TestLoadMissingDotEnvIgnored(t *testing.T) {
	opts := isolate(t)
	opts.DotEnvFiles = []string{filepath.Join(t.TempDir(), "absent.env")}

	_, err := Load(viper.New(), opts)
	require.NoError(t, err)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	opts := isolate(t)
	opts.ConfigFile = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(viper.New(), opts)
	require.Error(t, err)
}

func TestValidateCollectsProblems(t *testing.T) {
	opts := isolate(t)
	opts.ConfigFile = writeFile(t, "config.yaml", `
rate_limit:
  max_requests: 0
marketplace:
  search_url: "not a url"
  fetcher: curl
results:
  ranking: random
`)

	_, err := Load(viper.New(), opts)
	require.Error(t, err)

	var invalid *ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Problems, "rate_limit.max_requests must be positive")
	assert.Contains(t, invalid.Problems, "marketplace.search_url must be an absolute http(s) URL")
	assert.Contains(t, err.Error(), "marketplace.fetcher")
	assert.Contains(t, err.Error(), "results.ranking")
}

func TestValidateMessageLengthBounds(t *testing.T) {
	cases := []struct {
		length  int
		problem string
	}{
		{4096, ""},
		{1, ""},
		{4097, "message.max_length must not exceed 4096"},
		{0, "message.max_length must be positive"},
	}
	for _, tc := range cases {
		opts := isolate(t)
		v := viper.New()
		v.Set("message.max_length", tc.length)

		_, err := Load(v, opts)
		if tc.problem == "" {
			assert.NoError(t, err, "length %d", tc.length)
			continue
		}
		var invalid *ValidationError
		require.True(t, errors.As(err, &invalid), "length %d", tc.length)
		assert.Equal(t, []string{tc.problem}, invalid.Problems)
	}
}
