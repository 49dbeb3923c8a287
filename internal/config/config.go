// Package config loads and validates coffeemap configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/coffeemap/internal/places"
)

// Feed modes.
const (
	FeedKatana = "katana"
	FeedColly  = "colly"
	FeedFile   = "file"
)

// Config captures all run configuration knobs loaded via Viper.
type Config struct {
	Places   PlacesConfig   `mapstructure:"places"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Output   OutputConfig   `mapstructure:"output"`
	Progress ProgressConfig `mapstructure:"progress"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PlacesConfig controls the place search client.
type PlacesConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Endpoint          string        `mapstructure:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// FeedConfig selects and tunes the crawl record feed.
type FeedConfig struct {
	Mode              string `mapstructure:"mode"`
	SeedURL           string `mapstructure:"seed_url"`
	MatchPattern      string `mapstructure:"match_pattern"`
	MaxDepth          int    `mapstructure:"max_depth"`
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
	KatanaPath        string `mapstructure:"katana_path"`
	Input             string `mapstructure:"input"`
	UserAgent         string `mapstructure:"user_agent"`
}

// OutputConfig sets where the cache and chunk files live.
type OutputConfig struct {
	CacheDir  string `mapstructure:"cache_dir"`
	Dir       string `mapstructure:"dir"`
	Prefix    string `mapstructure:"prefix"`
	BatchSize int    `mapstructure:"batch_size"`
}

// ProgressConfig controls progress reporting.
type ProgressConfig struct {
	LogEvery int  `mapstructure:"log_every"`
	Terminal bool `mapstructure:"terminal"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"api-key":    "places.api_key",
	"batch-size": "output.batch_size",
	"depth":      "feed.max_depth",
	"rate":       "feed.requests_per_second",
	"cache-dir":  "output.cache_dir",
	"output-dir": "output.dir",
	"prefix":     "output.prefix",
	"feed":       "feed.mode",
	"input":      "feed.input",
	"seed-url":   "feed.seed_url",
	"log-every":  "progress.log_every",
	"metrics":    "metrics.addr",
	"dev":        "logging.development",
}

// Load builds a Config from defaults, an optional file at path, the
// environment (COFFEEMAP_ prefix), and any flags in flags that were set.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COFFEEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("places.api_key", "")
	v.SetDefault("places.endpoint", places.DefaultEndpoint)
	v.SetDefault("places.timeout", 30*time.Second)
	v.SetDefault("places.max_retries", 0)
	v.SetDefault("places.requests_per_second", 0)
	v.SetDefault("feed.mode", FeedKatana)
	v.SetDefault("feed.seed_url", "https://europeancoffeetrip.com/cafe")
	v.SetDefault("feed.match_pattern", ".*/cafe/.*")
	v.SetDefault("feed.max_depth", 3)
	v.SetDefault("feed.requests_per_second", 10)
	v.SetDefault("feed.katana_path", "katana")
	v.SetDefault("feed.input", "-")
	v.SetDefault("feed.user_agent", "coffeemap/0.1")
	v.SetDefault("output.cache_dir", "existing_kml")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.prefix", "ECT")
	v.SetDefault("output.batch_size", 1000)
	v.SetDefault("progress.log_every", 100)
	v.SetDefault("progress.terminal", true)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Places.APIKey) == "" {
		errs = append(errs, errors.New("places.api_key is required"))
	}
	if c.Places.Timeout <= 0 {
		errs = append(errs, errors.New("places.timeout must be > 0"))
	}
	if c.Places.MaxRetries < 0 {
		errs = append(errs, errors.New("places.max_retries must be >= 0"))
	}
	if c.Places.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("places.requests_per_second must be >= 0"))
	}
	if u, err := url.Parse(c.Places.Endpoint); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("places.endpoint %q is not an absolute url", c.Places.Endpoint))
	}
	switch c.Feed.Mode {
	case FeedKatana, FeedColly:
		if u, err := url.Parse(c.Feed.SeedURL); err != nil || !u.IsAbs() {
			errs = append(errs, fmt.Errorf("feed.seed_url %q is not an absolute url", c.Feed.SeedURL))
		}
		if _, err := regexp.Compile(c.Feed.MatchPattern); err != nil {
			errs = append(errs, fmt.Errorf("feed.match_pattern: %w", err))
		}
		if c.Feed.MaxDepth <= 0 {
			errs = append(errs, errors.New("feed.max_depth must be > 0"))
		}
		if c.Feed.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("feed.requests_per_second must be > 0"))
		}
	case FeedFile:
		if c.Feed.Input == "" {
			errs = append(errs, errors.New("feed.input is required in file mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("feed.mode %q must be one of katana, colly, file", c.Feed.Mode))
	}
	if c.Output.BatchSize <= 0 {
		errs = append(errs, errors.New("output.batch_size must be > 0"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}
	if c.Output.CacheDir == "" {
		errs = append(errs, errors.New("output.cache_dir is required"))
	}
	if c.Output.Prefix == "" {
		errs = append(errs, errors.New("output.prefix is required"))
	}
	if c.Progress.LogEvery < 0 {
		errs = append(errs, errors.New("progress.log_every must be >= 0"))
	}
	return errors.Join(errs...)
}
