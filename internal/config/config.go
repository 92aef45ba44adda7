// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"jobscout/internal/pipeline"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Search   SearchConfig   `mapstructure:"search"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Store    StoreConfig    `mapstructure:"store"`
	Report   ReportConfig   `mapstructure:"report"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// SearchConfig carries what to look for across all sources.
type SearchConfig struct {
	Keywords        []string `mapstructure:"keywords"`
	ExcludeKeywords []string `mapstructure:"exclude_keywords"`
	Location        string   `mapstructure:"location"`
	MaxPerSource    int      `mapstructure:"max_per_source"`
}

// SourcesConfig toggles individual boards and fan-out width.
type SourcesConfig struct {
	Enabled     []string `mapstructure:"enabled"`
	MaxParallel int      `mapstructure:"max_parallel"`
}

// FetchConfig configures the plain HTTP fetch path.
type FetchConfig struct {
	UserAgent         string  `mapstructure:"user_agent"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	MaxRetries        int     `mapstructure:"max_retries"`
	BackoffInitialMs  int     `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs      int     `mapstructure:"backoff_max_ms"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// HeadlessConfig configures the browser-backed fetch path used by
// boards that render listings client-side.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// StoreConfig controls access to the posting store.
type StoreConfig struct {
	DSN             string `mapstructure:"dsn"`
	Table           string `mapstructure:"table"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	LifetimeMinutes int    `mapstructure:"lifetime_minutes"`
}

// ReportConfig selects where run summaries are archived.
type ReportConfig struct {
	// Backend is "local" or "gcs"; empty disables archiving.
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds the run-notification destination; empty disables it.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. Environment variables use
// the JOBSCOUT prefix with underscores, e.g. JOBSCOUT_STORE_DSN.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.interval_minutes", 360)
	v.SetDefault("search.location", "Pune")
	v.SetDefault("search.max_per_source", 50)
	v.SetDefault("sources.enabled", []string{"timesjobs", "indeed", "careers"})
	v.SetDefault("sources.max_parallel", 3)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_initial_ms", 250)
	v.SetDefault("fetch.backoff_max_ms", 5000)
	v.SetDefault("fetch.requests_per_second", 0.5)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("store.table", "postings")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("report.backend", "local")
	v.SetDefault("report.local_dir", "reports")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Sources.MaxParallel <= 0 {
		return fmt.Errorf("sources.max_parallel must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	for _, name := range c.Sources.Enabled {
		if !pipeline.Source(name).Valid() {
			return fmt.Errorf("sources.enabled contains unknown source %q", name)
		}
	}
	switch c.Report.Backend {
	case "", "local", "gcs":
	default:
		return fmt.Errorf("report.backend must be local or gcs")
	}
	if c.Report.Backend == "gcs" && c.Report.GCSBucket == "" {
		return fmt.Errorf("report.gcs_bucket must be set when report.backend is gcs")
	}
	return nil
}

// EnabledSources converts the configured source names.
func (c Config) EnabledSources() []pipeline.Source {
	out := make([]pipeline.Source, 0, len(c.Sources.Enabled))
	for _, name := range c.Sources.Enabled {
		out = append(out, pipeline.Source(name))
	}
	return out
}

// Criteria converts the search section into pipeline criteria.
func (c Config) Criteria() pipeline.FetchCriteria {
	return pipeline.FetchCriteria{
		Keywords:        c.Search.Keywords,
		ExcludeKeywords: c.Search.ExcludeKeywords,
		Location:        c.Search.Location,
		MaxRecords:      c.Search.MaxPerSource,
	}
}

// FetchTimeout converts the configured fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RunInterval converts the scheduler interval.
func (c Config) RunInterval() time.Duration {
	return time.Duration(c.Server.IntervalMinutes) * time.Minute
}
