package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/darkauction/internal/api/respond"
)

// --------------------------------------------------------------------------
// Request timing middleware
// --------------------------------------------------------------------------

// TimingMiddleware sets the X-Process-Time header. The header is written
// before the body, so it measures time to first write.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &timingWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(tw, r)
	})
}

type timingWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (tw *timingWriter) WriteHeader(status int) {
	if !tw.wroteHeader {
		tw.wroteHeader = true
		elapsed := time.Since(tw.start)
		tw.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000.0))
	}
	tw.ResponseWriter.WriteHeader(status)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *timingWriter) Unwrap() http.ResponseWriter { return tw.ResponseWriter }

// --------------------------------------------------------------------------
// Rate limiting middleware (IP-based token bucket)
// --------------------------------------------------------------------------

// client is one caller's bucket and the last time it made a request.
type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// ipLimiter allows requestsPerWindow requests per window to each IP, all of
// them at once if the bucket is full. Buckets idle for a whole window are
// full again and get dropped.
type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// newIPLimiter returns nil when the settings cannot describe a rate.
func newIPLimiter(requestsPerWindow int, window time.Duration, now func() time.Time) *ipLimiter {
	if requestsPerWindow <= 0 || window <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &ipLimiter{
		clients: make(map[string]*client),
		limit:   rate.Every(window / time.Duration(requestsPerWindow)),
		burst:   requestsPerWindow,
		window:  window,
		now:     now,
	}
}

// allow spends a token for ip. When none is left it returns how long until
// the next one.
func (l *ipLimiter) allow(ip string) (remaining int, retryAfter time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	c, exists := l.clients[ip]
	if !exists {
		c = &client{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	if c.bucket.AllowN(now, 1) {
		return int(c.bucket.TokensAt(now)), 0, true
	}
	res := c.bucket.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return 0, delay, false
}

func (l *ipLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.window {
			delete(l.clients, ip)
		}
	}
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimitMiddleware returns middleware that rate-limits by client IP. now
// defaults to time.Now. Non-positive settings disable limiting.
func RateLimitMiddleware(requestsPerWindow int, window time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	limiter := newIPLimiter(requestsPerWindow, window, now)
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	limitHeader := strconv.Itoa(requestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, _ := net.SplitHostPort(r.RemoteAddr)
			if ip == "" {
				ip = r.RemoteAddr
			}

			remaining, retryAfter, ok := limiter.allow(ip)
			w.Header().Set("X-RateLimit-Limit", limitHeader)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(respond.RetryAfterSeconds(retryAfter)))
				respond.WriteError(w, respond.RateLimited(retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
