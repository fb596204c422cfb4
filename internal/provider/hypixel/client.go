// Package hypixel polls the Hypixel player counts endpoint and reports
// whether a Skyblock mode (the Dark Auction by default) is currently populated.
//
// Requests go through a token bucket limiter sized from the configured
// requests-per-minute budget.
package hypixel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/darkauction/internal/config"
	"github.com/albapepper/darkauction/internal/failure"
	"github.com/albapepper/darkauction/internal/metrics"
	"github.com/albapepper/darkauction/internal/provider"
)

const gameKey = "SKYBLOCK"

// Reporter receives failures that CheckPresence swallows.
type Reporter interface {
	ReportError(ctx context.Context, stage string, err error)
}

// Client is the HTTP client for the counts endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	modeKey    string
	limiter    *rate.Limiter
	reporter   Reporter
	logger     *slog.Logger
}

// NewClient creates a counts client with rate limiting. reporter may be nil.
func NewClient(cfg *config.Config, reporter Reporter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rps := float64(cfg.RequestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		url:        cfg.RequestURL(),
		modeKey:    cfg.ModeKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		reporter:   reporter,
		logger:     logger.With("component", "hypixel"),
	}
}

// countsResponse is the subset of /v2/counts the monitor reads.
type countsResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
	Games   map[string]struct {
		Players int                    `json:"players"`
		Modes   map[string]interface{} `json:"modes"`
	} `json:"games"`
}

// Fetch performs one GET and reports whether the mode key is present.
// Transport errors and non-2xx statuses wrap failure.ErrNetwork; an
// unexpected body shape wraps failure.ErrParse.
func (c *Client) Fetch(ctx context.Context) (provider.Reading, error) {
	start := time.Now()
	reading, err := c.fetch(ctx)
	switch {
	case err != nil:
		metrics.ObservePoll(metrics.PollError, time.Since(start))
	case reading.Present:
		metrics.ObservePoll(metrics.PollPresent, time.Since(start))
	default:
		metrics.ObservePoll(metrics.PollAbsent, time.Since(start))
	}
	return reading, err
}

func (c *Client) fetch(ctx context.Context) (provider.Reading, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return provider.Reading{}, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return provider.Reading{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return provider.Reading{}, ctx.Err()
		}
		return provider.Reading{}, failure.Network("fetch counts: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.Reading{}, failure.Network("read response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return provider.Reading{}, failure.Network("counts returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return c.parse(body)
}

// parse extracts games.SKYBLOCK.modes[modeKey]. A missing path is a parse
// failure, not an absent mode.
func (c *Client) parse(body []byte) (provider.Reading, error) {
	var result countsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return provider.Reading{}, failure.Parse("decode response: %v", err)
	}
	if result.Games == nil {
		if result.Cause != "" {
			return provider.Reading{}, failure.Parse("response has no games (cause: %s)", result.Cause)
		}
		return provider.Reading{}, failure.Parse("response has no games")
	}
	game, ok := result.Games[gameKey]
	if !ok {
		return provider.Reading{}, failure.Parse("response has no games.%s", gameKey)
	}
	if game.Modes == nil {
		return provider.Reading{}, failure.Parse("response has no games.%s.modes", gameKey)
	}

	raw, present := game.Modes[c.modeKey]
	if !present {
		return provider.Reading{}, nil
	}
	players, ok := provider.ExtractCount(raw)
	if !ok {
		return provider.Reading{}, failure.Parse("mode %s has non-integer value %v", c.modeKey, raw)
	}
	return provider.Reading{Present: true, Players: players}, nil
}

// CheckPresence reports whether the mode is live right now. Failures are
// logged, handed to the reporter, and treated as absent.
func (c *Client) CheckPresence(ctx context.Context) bool {
	reading, err := c.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.Warn("Presence check failed", "error", err)
		if c.reporter != nil {
			c.reporter.ReportError(ctx, "check presence", err)
		}
		return false
	}
	return reading.Present
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
