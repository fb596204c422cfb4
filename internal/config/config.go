// Package config provides centralized configuration loaded from environment
// variables. Shared by every cmd/darkauction subcommand.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Skyblock calendar constants
// --------------------------------------------------------------------------

const (
	// DefaultEraEpochMs is the real-world instant of Skyblock year 1.
	DefaultEraEpochMs int64 = 1560275700000
	// DefaultYearMs is one Skyblock year in real milliseconds.
	DefaultYearMs int64 = 446400000
	// DefaultCadenceMs is the real-world hour between Dark Auction slots.
	DefaultCadenceMs int64 = 3600000

	DefaultAPIURL   = "https://api.hypixel.net/v2/counts"
	DefaultModeKey  = "dark_auction"
	DefaultTopic    = "dark-auction-events"
	DefaultLowFloor = 2
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Hypixel API
	APIURL            string
	APIKey            string
	RequestsPerMinute int
	HTTPTimeout       time.Duration // zero keeps the http.Client default
	ModeKey           string

	// Discord webhook
	WebhookURL string

	// Calendar
	EraEpochMs int64
	YearMs     int64
	CadenceMs  int64

	// Loop cadence
	WaitTick    time.Duration
	DetectTick  time.Duration
	SampleTick  time.Duration
	GracePeriod time.Duration

	// Counts at or below this are treated as placeholder attendance.
	LowPlayerFloor int

	// Status server (empty address disables it)
	StatusAddr        string
	CORSAllowOrigins  []string
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Kafka event stream (no brokers disables it)
	KafkaBrokers []string
	KafkaTopic   string

	Environment string // development, staging, production
	LogLevel    slog.Level
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:            envOr("HYPIXEL_API_URL", DefaultAPIURL),
		APIKey:            envOr("HYPIXEL_API_KEY", ""),
		RequestsPerMinute: envInt("HYPIXEL_REQUESTS_PER_MINUTE", 120),
		HTTPTimeout:       time.Duration(envInt("HTTP_TIMEOUT_SECONDS", 0)) * time.Second,
		ModeKey:           envOr("MODE_KEY", DefaultModeKey),

		WebhookURL: envOr("DISCORD_WEBHOOK_URL", ""),

		EraEpochMs: envInt64("SKYBLOCK_ERA_EPOCH_MS", DefaultEraEpochMs),
		YearMs:     envInt64("SKYBLOCK_YEAR_MS", DefaultYearMs),
		CadenceMs:  envInt64("CADENCE_MS", DefaultCadenceMs),

		WaitTick:    time.Duration(envInt("WAIT_TICK_SECONDS", 1)) * time.Second,
		DetectTick:  time.Duration(envInt("DETECT_TICK_SECONDS", 1)) * time.Second,
		SampleTick:  time.Duration(envInt("SAMPLE_TICK_SECONDS", 2)) * time.Second,
		GracePeriod: time.Duration(envInt("GRACE_PERIOD_SECONDS", 120)) * time.Second,

		LowPlayerFloor: envInt("LOW_PLAYER_FLOOR", DefaultLowFloor),

		StatusAddr: envOr("STATUS_ADDR", ""),
		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),
		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		KafkaBrokers: envList("KAFKA_BROKERS", nil),
		KafkaTopic:   envOr("KAFKA_TOPIC", DefaultTopic),

		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects calendar, cadence and rate limit values the monitor cannot work with.
func (c *Config) Validate() error {
	if c.YearMs <= 0 {
		return fmt.Errorf("SKYBLOCK_YEAR_MS must be positive, got %d", c.YearMs)
	}
	if c.CadenceMs <= 0 {
		return fmt.Errorf("CADENCE_MS must be positive, got %d", c.CadenceMs)
	}
	if c.WaitTick <= 0 || c.DetectTick <= 0 || c.SampleTick <= 0 {
		return fmt.Errorf("tick intervals must be positive")
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("GRACE_PERIOD_SECONDS must not be negative")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("HYPIXEL_REQUESTS_PER_MINUTE must be positive, got %d", c.RequestsPerMinute)
	}
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("HYPIXEL_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.RateLimitEnabled {
		if c.RateLimitRequests <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests)
		}
		if c.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.RateLimitWindow)
		}
	}
	return nil
}

// RequestURL returns the counts endpoint with the API key attached as the
// escaped "key" query parameter.
func (c *Config) RequestURL() string {
	if c.APIKey == "" {
		return c.APIURL
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return c.APIURL + "?" + url.Values{"key": {c.APIKey}}.Encode()
	}
	q := u.Query()
	q.Set("key", c.APIKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
