package model

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Record kinds
const (
	KindCast      = "cast"
	KindBoxOffice = "boxoffice"
)

// Config is the complete runtime configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Input        InputConfig        `yaml:"input" mapstructure:"input"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Cast         CastConfig         `yaml:"cast" mapstructure:"cast"`
	BoxOffice    BoxOfficeConfig    `yaml:"boxoffice" mapstructure:"boxoffice"`
}

// HTTPConfig controls the page fetcher
type HTTPConfig struct {
	FetchTimeout  time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir,omitempty" mapstructure:"dir"` // Empty keeps the cache in memory only
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls the worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls the per-host request budget
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// InputConfig describes the identifier source
type InputConfig struct {
	Path   string `yaml:"path,omitempty" mapstructure:"path"`
	Column string `yaml:"column" mapstructure:"column"`
}

// OutputConfig describes where tables are written
type OutputConfig struct {
	Dir              string `yaml:"dir" mapstructure:"dir"`
	IdentifierColumn string `yaml:"identifier_column" mapstructure:"identifier_column"`
	WriteIndex       bool   `yaml:"write_index" mapstructure:"write_index"`
}

// LogConfig controls logging
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// CastConfig configures the cast-table strategy
type CastConfig struct {
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	PathSuffix      string `yaml:"path_suffix" mapstructure:"path_suffix"`
	HeadingSelector string `yaml:"heading_selector" mapstructure:"heading_selector"`
	Marker          string `yaml:"marker" mapstructure:"marker"`
	MaxNames        int    `yaml:"max_names" mapstructure:"max_names"`
}

// BoxOfficeConfig configures the box-office-figures strategy
type BoxOfficeConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	PathSuffix string `yaml:"path_suffix" mapstructure:"path_suffix"`
	Selector   string `yaml:"selector" mapstructure:"selector"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			FetchTimeout:  30 * time.Second,
			UserAgent:     "reelscrape/0.3 (+https://github.com/movie-ratings/reelscrape)",
			MaxBodyBytes:  5_000_000,
			MaxRetries:    2,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Input: InputConfig{
			Column: "imdbId",
		},
		Output: OutputConfig{
			Dir:              ".",
			IdentifierColumn: "imdbId",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Cast: CastConfig{
			BaseURL:         "https://www.imdb.com/title/",
			PathSuffix:      "fullcredits",
			HeadingSelector: "h4",
			Marker:          "Cast",
			MaxNames:        10,
		},
		BoxOffice: BoxOfficeConfig{
			BaseURL:  "https://www.boxofficemojo.com/title/",
			Selector: "span.a-size-medium.a-text-bold",
		},
	}
}

// Validate checks the configuration for values the scraper cannot work with
func (c *Config) Validate() error {
	if c.Concurrency.Workers <= 0 {
		return fmt.Errorf("concurrency.workers must be > 0")
	}
	if c.HTTP.FetchTimeout <= 0 {
		return fmt.Errorf("http.fetch_timeout must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0")
	}
	if c.RateLimiting.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limiting.requests_per_second must be >= 0")
	}
	if c.Output.IdentifierColumn == "" {
		return fmt.Errorf("output.identifier_column is required")
	}
	if c.Cast.BaseURL == "" || c.BoxOffice.BaseURL == "" {
		return fmt.Errorf("cast.base_url and boxoffice.base_url are required")
	}
	if c.Cast.Marker == "" {
		return fmt.Errorf("cast.marker is required")
	}
	if c.Cast.MaxNames <= 0 {
		return fmt.Errorf("cast.max_names must be > 0")
	}
	if c.BoxOffice.Selector == "" || c.Cast.HeadingSelector == "" {
		return fmt.Errorf("cast.heading_selector and boxoffice.selector are required")
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SiteFor returns the base URL and path suffix for a record kind
func (c *Config) SiteFor(kind string) (baseURL, suffix string, err error) {
	switch kind {
	case KindCast:
		return c.Cast.BaseURL, c.Cast.PathSuffix, nil
	case KindBoxOffice:
		return c.BoxOffice.BaseURL, c.BoxOffice.PathSuffix, nil
	default:
		return "", "", fmt.Errorf("unknown record kind: %q", kind)
	}
}

// ParseLogLevel maps a level name to a slog level
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", level)
	}
}
