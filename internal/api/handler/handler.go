// Package handler provides HTTP handlers for the monitor's status API.
// Handlers read the status tracker and the calendar; they never touch the
// monitor loop directly.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/albapepper/darkauction/internal/api/respond"
	"github.com/albapepper/darkauction/internal/cache"
	"github.com/albapepper/darkauction/internal/skytime"
	"github.com/albapepper/darkauction/internal/status"
)

const (
	defaultWindowCount = 5
	maxWindowCount     = 48
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	tracker  *status.Tracker
	calendar skytime.Calendar
	cache    *cache.Cache
	now      func() time.Time
}

// New creates a Handler. now defaults to time.Now.
func New(tracker *status.Tracker, cal skytime.Calendar, c *cache.Cache, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{tracker: tracker, calendar: cal, cache: c, now: now}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and links.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":    "Skyblock Dark Auction Monitor",
		"version": Version,
		"status":  "running",
		"docs":    "/docs",
		"metrics": "/metrics",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns health, the monitor phase, and a timestamp. Reports 503 once the monitor loop has stopped.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.tracker.Snapshot()
	code, state := http.StatusOK, "healthy"
	if snap.Phase == status.PhaseStopped {
		code, state = http.StatusServiceUnavailable, "stopped"
	}
	respond.WriteJSONObject(w, code, map[string]any{
		"status":    state,
		"phase":     snap.Phase,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns response cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	status.Snapshot
	NextWindowIn string `json:"next_window_in,omitempty"`
}

// GetStatus returns the monitor's current state.
// @Summary Monitor status
// @Description Returns the orchestrator phase, the live auction if one is being sampled, the last summary, and the last reported error.
// @Tags monitor
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Snapshot: h.tracker.Snapshot()}
	if resp.NextWindow != nil {
		resp.NextWindowIn = skytime.Format(resp.NextWindow.Sub(h.now()))
	}
	respond.WriteJSONObject(w, http.StatusOK, resp)
}

// Window is one predicted Dark Auction slot.
type Window struct {
	Start        time.Time `json:"start"`
	StartMs      int64     `json:"start_ms"`
	SkyblockDate string    `json:"skyblock_date"`
}

// WindowsResponse is the body of GET /windows.
type WindowsResponse struct {
	ValidUntil time.Time `json:"valid_until"`
	Windows    []Window  `json:"windows"`
}

// GetWindows returns the next predicted windows.
// @Summary Upcoming windows
// @Description Returns the next predicted Dark Auction windows with their Skyblock dates. Responses are cached until the first window passes.
// @Tags monitor
// @Produce json
// @Param count query int false "Number of windows (1-48)" default(5)
// @Success 200 {object} WindowsResponse
// @Success 304 "Not modified"
// @Failure 400 {object} respond.ErrorResponse
// @Router /windows [get]
func (h *Handler) GetWindows(w http.ResponseWriter, r *http.Request) {
	count := defaultWindowCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxWindowCount {
			respond.WriteError(w, respond.BadParameter(
				"count must be an integer", fmt.Sprintf("allowed range is 1-%d", maxWindowCount)))
			return
		}
		count = n
	}

	now := h.now()
	starts := h.calendar.Upcoming(skytime.Millis(now), count)
	expires := skytime.Time(starts[0])
	// the list only changes when the first window passes
	key := fmt.Sprintf("windows:%d:%d", count, starts[0])

	if data, etag, ok := h.cache.Get(key); ok {
		respond.WriteCached(w, r, respond.Cached{Data: data, ETag: etag, Expires: expires, Hit: true},
			now, cache.CheckETagMatch)
		return
	}

	resp := WindowsResponse{ValidUntil: expires.UTC(), Windows: make([]Window, 0, len(starts))}
	for _, ms := range starts {
		resp.Windows = append(resp.Windows, Window{
			Start:        skytime.Time(ms).UTC(),
			StartMs:      ms,
			SkyblockDate: h.calendar.Date(ms).String(),
		})
	}
	data, err := json.Marshal(resp)
	if err != nil {
		respond.WriteError(w, respond.Internal("Failed to render windows"))
		return
	}
	etag := h.cache.Set(key, data, expires)
	respond.WriteCached(w, r, respond.Cached{Data: data, ETag: etag, Expires: expires}, now, cache.CheckETagMatch)
}
