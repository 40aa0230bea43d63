package goolstar

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/juanqui-art/goolstar-go/token"
)

// DefaultBaseURL is the production API root used when no override is
// configured.
const DefaultBaseURL = "https://goolstar-backend.fly.dev/api"

// Config holds all SDK tuning parameters. Zero values select the documented
// defaults at Build time.
type Config struct {
	API       APIConfig
	Auth      AuthConfig
	Optimizer OptimizerConfig
	Dashboard DashboardConfig
	Metrics   MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend and bounds the HTTP transport.
type APIConfig struct {
	// BaseURL is the API root for all clients.
	BaseURL string

	// DashboardBaseURL optionally points the dashboard client at a different
	// host. Empty means "same as BaseURL" — a second endpoint is an explicit,
	// named choice, never an accident.
	DashboardBaseURL string

	// HTTPTimeout bounds every request end to end. Zero selects 15s.
	HTTPTimeout time.Duration
}

/*
====================================
AUTH CONFIG
====================================
*/

// AuthConfig tunes the session store.
type AuthConfig struct {
	// RefreshThreshold is the remaining access-token lifetime below which the
	// store refreshes proactively. Zero selects token.DefaultRefreshThreshold.
	RefreshThreshold time.Duration

	// SessionFile, when non-empty, persists the session as a JSON blob at
	// this path (unless the builder injects a different storage backend).
	SessionFile string
}

/*
====================================
OPTIMIZER CONFIG
====================================
*/

// OptimizerConfig tunes the public-read transport.
type OptimizerConfig struct {
	// MinInterval is the minimum spacing between dispatched requests.
	// Zero selects 250ms.
	MinInterval time.Duration

	// DefaultTTL is the cache lifetime for GET responses. Zero selects 5m.
	DefaultTTL time.Duration

	// SweepInterval is how often expired cache entries are evicted.
	// Zero selects 5m.
	SweepInterval time.Duration
}

/*
====================================
DASHBOARD CONFIG
====================================
*/

// DashboardConfig tunes the staff client's retry and fan-out behavior.
type DashboardConfig struct {
	// MaxRetries bounds 429 retries per request. Zero selects 3.
	MaxRetries int

	// PageSize is the page_size sent by the paginated loader. Zero selects 100.
	PageSize int

	// MaxPages is the paginated loader's runaway guard. Zero selects 100.
	MaxPages int

	// BatchSize is the concurrent group size for batch fan-out. Zero selects 5.
	BatchSize int

	// BatchDelay is the pause between batch groups. Zero selects 500ms.
	BatchDelay time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the atomic counters.
type MetricsConfig struct {
	Enabled bool
}

const (
	defaultHTTPTimeout   = 15 * time.Second
	defaultMaxRetries    = 3
	defaultPageSize      = 100
	defaultMaxPages      = 100
	defaultBatchSize     = 5
	defaultBatchDelay    = 500 * time.Millisecond
	defaultMinInterval   = 250 * time.Millisecond
	defaultCacheTTL      = 5 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:     DefaultBaseURL,
			HTTPTimeout: defaultHTTPTimeout,
		},
		Auth: AuthConfig{
			RefreshThreshold: token.DefaultRefreshThreshold,
		},
		Optimizer: OptimizerConfig{
			MinInterval:   defaultMinInterval,
			DefaultTTL:    defaultCacheTTL,
			SweepInterval: defaultSweepInterval,
		},
		Dashboard: DashboardConfig{
			MaxRetries: defaultMaxRetries,
			PageSize:   defaultPageSize,
			MaxPages:   defaultMaxPages,
			BatchSize:  defaultBatchSize,
			BatchDelay: defaultBatchDelay,
		},
	}
}

// Validate checks the configuration for values Build cannot default away.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API.BaseURL is required")
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return errors.New("API.BaseURL is not a valid URL")
	}
	if c.API.DashboardBaseURL != "" {
		if _, err := url.ParseRequestURI(c.API.DashboardBaseURL); err != nil {
			return errors.New("API.DashboardBaseURL is not a valid URL")
		}
	}
	if c.API.HTTPTimeout < 0 {
		return errors.New("API.HTTPTimeout must not be negative")
	}
	if c.Auth.RefreshThreshold < 0 {
		return errors.New("Auth.RefreshThreshold must not be negative")
	}
	if c.Dashboard.MaxRetries < 0 || c.Dashboard.MaxRetries > 10 {
		return errors.New("Dashboard.MaxRetries must be between 0 and 10")
	}
	if c.Dashboard.MaxPages < 0 {
		return errors.New("Dashboard.MaxPages must not be negative")
	}
	if c.Dashboard.BatchSize < 0 {
		return errors.New("Dashboard.BatchSize must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.HTTPTimeout == 0 {
		c.API.HTTPTimeout = def.API.HTTPTimeout
	}
	if c.Auth.RefreshThreshold == 0 {
		c.Auth.RefreshThreshold = def.Auth.RefreshThreshold
	}
	if c.Optimizer.MinInterval == 0 {
		c.Optimizer.MinInterval = def.Optimizer.MinInterval
	}
	if c.Optimizer.DefaultTTL == 0 {
		c.Optimizer.DefaultTTL = def.Optimizer.DefaultTTL
	}
	if c.Optimizer.SweepInterval == 0 {
		c.Optimizer.SweepInterval = def.Optimizer.SweepInterval
	}
	if c.Dashboard.MaxRetries == 0 {
		c.Dashboard.MaxRetries = def.Dashboard.MaxRetries
	}
	if c.Dashboard.PageSize == 0 {
		c.Dashboard.PageSize = def.Dashboard.PageSize
	}
	if c.Dashboard.MaxPages == 0 {
		c.Dashboard.MaxPages = def.Dashboard.MaxPages
	}
	if c.Dashboard.BatchSize == 0 {
		c.Dashboard.BatchSize = def.Dashboard.BatchSize
	}
	if c.Dashboard.BatchDelay == 0 {
		c.Dashboard.BatchDelay = def.Dashboard.BatchDelay
	}
}

// ConfigFromEnv builds a Config from environment variables, loading a .env
// file first when one exists. Unset variables keep their defaults.
//
//	GOOLSTAR_API_URL            API root (default DefaultBaseURL)
//	GOOLSTAR_DASHBOARD_API_URL  dashboard API root override
//	GOOLSTAR_HTTP_TIMEOUT       e.g. "20s"
//	GOOLSTAR_REFRESH_THRESHOLD  e.g. "5m"
//	GOOLSTAR_MIN_INTERVAL       request spacing, e.g. "250ms"
//	GOOLSTAR_CACHE_TTL          GET cache lifetime, e.g. "5m"
//	GOOLSTAR_SESSION_FILE       session persistence path
//	GOOLSTAR_METRICS            "true" enables counters
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()
	cfg.API.BaseURL = getEnv("GOOLSTAR_API_URL", cfg.API.BaseURL)
	cfg.API.DashboardBaseURL = getEnv("GOOLSTAR_DASHBOARD_API_URL", "")
	cfg.API.HTTPTimeout = getEnvDuration("GOOLSTAR_HTTP_TIMEOUT", cfg.API.HTTPTimeout)
	cfg.Auth.RefreshThreshold = getEnvDuration("GOOLSTAR_REFRESH_THRESHOLD", cfg.Auth.RefreshThreshold)
	cfg.Auth.SessionFile = getEnv("GOOLSTAR_SESSION_FILE", "")
	cfg.Optimizer.MinInterval = getEnvDuration("GOOLSTAR_MIN_INTERVAL", cfg.Optimizer.MinInterval)
	cfg.Optimizer.DefaultTTL = getEnvDuration("GOOLSTAR_CACHE_TTL", cfg.Optimizer.DefaultTTL)
	cfg.Metrics.Enabled = getEnvBool("GOOLSTAR_METRICS", false)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
