// Package respond writes the status API's JSON bodies and the cache headers
// that go with them.
package respond

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError describes one failed request. Status is the HTTP code and is not
// serialized.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// BadParameter is a 400 for a query parameter outside its allowed range.
func BadParameter(message, detail string) APIError {
	return APIError{Status: http.StatusBadRequest, Code: "INVALID_PARAMETER", Message: message, Detail: detail}
}

// Internal is a 500 with a generic code.
func Internal(message string) APIError {
	return APIError{Status: http.StatusInternalServerError, Code: "INTERNAL", Message: message}
}

// RateLimited is a 429 telling the client how long to back off.
func RateLimited(retryAfter time.Duration) APIError {
	return APIError{
		Status:  http.StatusTooManyRequests,
		Code:    "RATE_LIMITED",
		Message: "Too many requests",
		Detail:  fmt.Sprintf("retry in %ds", RetryAfterSeconds(retryAfter)),
	}
}

// RetryAfterSeconds rounds d up to whole seconds, never below one. Anything
// under a millisecond is dropped first.
func RetryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Round(time.Millisecond).Seconds())), 1)
}

// WriteError sends e as a JSON error body. Errors are never cached.
func WriteError(w http.ResponseWriter, e APIError) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

// WriteJSONObject encodes v uncached. Used for bodies that change on every
// request, such as the live status.
func WriteJSONObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Cached is a pre-rendered body that stays valid until Expires.
type Cached struct {
	Data    []byte
	ETag    string
	Expires time.Time
	Hit     bool
}

// WriteCached sends c, or a 304 when the request's If-None-Match already
// names c.ETag. Freshness headers count down from now to c.Expires.
func WriteCached(w http.ResponseWriter, r *http.Request, c Cached, now time.Time, match func(header, etag string) bool) {
	h := w.Header()
	h.Set("ETag", c.ETag)
	h.Set("Vary", "Accept-Encoding")
	setFreshness(h, c.Expires, now)
	if match != nil && match(r.Header.Get("If-None-Match"), c.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if c.Hit {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(c.Data)
}

// setFreshness sets max-age and Expires so both agree on when the body goes
// stale. A body already past its expiry gets max-age=0.
func setFreshness(h http.Header, expires, now time.Time) {
	maxAge := max(int(expires.Sub(now)/time.Second), 0)
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	h.Set("Expires", expires.UTC().Format(http.TimeFormat))
}
