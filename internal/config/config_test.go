package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COFFEEMAP_PLACES_API_KEY", "env-key")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Places.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Places.Timeout)
	assert.Equal(t, 0, cfg.Places.MaxRetries)
	assert.Equal(t, FeedKatana, cfg.Feed.Mode)
	assert.Equal(t, "https://europeancoffeetrip.com/cafe", cfg.Feed.SeedURL)
	assert.Equal(t, ".*/cafe/.*", cfg.Feed.MatchPattern)
	assert.Equal(t, 3, cfg.Feed.MaxDepth)
	assert.Equal(t, 10, cfg.Feed.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.Output.BatchSize)
	assert.Equal(t, "ECT", cfg.Output.Prefix)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
places:
  api_key: file-key
  timeout: 5s
  max_retries: 2
  requests_per_second: 4.5
feed:
  mode: colly
  max_depth: 2
  user_agent: test-agent
output:
  dir: out
  cache_dir: cache
  prefix: TEST
  batch_size: 50
progress:
  log_every: 10
  terminal: false
metrics:
  addr: ":9091"
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.Places.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Places.Timeout)
	assert.Equal(t, 2, cfg.Places.MaxRetries)
	assert.InDelta(t, 4.5, cfg.Places.RequestsPerSecond, 1e-9)
	assert.Equal(t, FeedColly, cfg.Feed.Mode)
	assert.Equal(t, 2, cfg.Feed.MaxDepth)
	assert.Equal(t, "test-agent", cfg.Feed.UserAgent)
	assert.Equal(t, OutputConfig{CacheDir: "cache", Dir: "out", Prefix: "TEST", BatchSize: 50}, cfg.Output)
	assert.Equal(t, ProgressConfig{LogEvery: 10, Terminal: false}, cfg.Progress)
	assert.Equal(t, ":9091", cfg.Metrics.Addr)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("places:\n  api_key: file-key\noutput:\n  batch_size: 50\n"), 0o600))

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("api-key", "", "")
	flags.Int("batch-size", 1000, "")
	flags.String("feed", FeedKatana, "")
	flags.String("input", "-", "")
	require.NoError(t, flags.Parse([]string{"--api-key", "flag-key", "--feed", "file", "--input", "crawl.jsonl"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "flag-key", cfg.Places.APIKey)
	assert.Equal(t, 50, cfg.Output.BatchSize, "unset flags do not shadow file values")
	assert.Equal(t, FeedFile, cfg.Feed.Mode)
	assert.Equal(t, "crawl.jsonl", cfg.Feed.Input)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Places: PlacesConfig{
				APIKey:   "key",
				Endpoint: "https://places.googleapis.com/v1/places:searchText",
				Timeout:  time.Second,
			},
			Feed: FeedConfig{
				Mode:              FeedKatana,
				SeedURL:           "https://europeancoffeetrip.com/cafe",
				MatchPattern:      ".*/cafe/.*",
				MaxDepth:          3,
				RequestsPerSecond: 10,
			},
			Output: OutputConfig{CacheDir: "cache", Dir: "out", Prefix: "ECT", BatchSize: 1000},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing api key", mutate: func(c *Config) { c.Places.APIKey = " " }, want: "places.api_key"},
		{name: "zero batch", mutate: func(c *Config) { c.Output.BatchSize = 0 }, want: "output.batch_size"},
		{name: "bad mode", mutate: func(c *Config) { c.Feed.Mode = "spider" }, want: "feed.mode"},
		{name: "bad pattern", mutate: func(c *Config) { c.Feed.MatchPattern = "(" }, want: "feed.match_pattern"},
		{name: "relative seed", mutate: func(c *Config) { c.Feed.SeedURL = "/cafe" }, want: "feed.seed_url"},
		{name: "zero depth", mutate: func(c *Config) { c.Feed.MaxDepth = 0 }, want: "feed.max_depth"},
		{name: "negative retries", mutate: func(c *Config) { c.Places.MaxRetries = -1 }, want: "places.max_retries"},
		{name: "file mode without input", mutate: func(c *Config) { c.Feed.Mode = FeedFile }, want: "feed.input"},
		{name: "empty prefix", mutate: func(c *Config) { c.Output.Prefix = "" }, want: "output.prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
