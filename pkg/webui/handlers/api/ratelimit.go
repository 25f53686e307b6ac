package api

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateWindow is the fixed accounting window for request budgets.
const rateWindow = time.Minute

type rateBucket struct {
	windowStart time.Time
	count       int
}

// rateLimiter tracks per-client request counts over a fixed window.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	limit   int
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		buckets: make(map[string]*rateBucket),
		limit:   limit,
	}
}

// allow reports whether the client may make another request, counting it.
func (l *rateLimiter) allow(clientKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	bucket, ok := l.buckets[clientKey]
	if !ok || now.Sub(bucket.windowStart) >= rateWindow {
		bucket = &rateBucket{windowStart: now}
		l.buckets[clientKey] = bucket
	}

	if bucket.count >= l.limit {
		return false
	}

	bucket.count++

	return true
}

// clientKey identifies the caller by IP address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// RateLimit returns a router middleware enforcing a per-client request
// budget per minute. A non-positive limit disables rate limiting.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	limiter := newRateLimiter(requestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestsPerMinute > 0 && !limiter.allow(clientKey(r)) {
				writeFailure(w, http.StatusTooManyRequests, "rate limit exceeded")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
