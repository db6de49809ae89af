package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	h "invitehub/internal/delivery/http/helpers"
)

const rateLimiterCleanupInterval = 5 * time.Minute

// RateLimiter applies a token-bucket limit per client IP. Buckets refill at
// rps up to burst; buckets that have fully refilled are dropped during
// periodic cleanup so the map does not grow without bound.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu          sync.Mutex
	perKey      map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewRateLimiter creates a per-client rate limiter. Non-positive values fall
// back to 1 request per second with a burst of 1.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:         rate.Limit(rps),
		burst:       burst,
		perKey:      make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// Limit wraps next with the per-client limit. Rejected requests get 429 with
// a Retry-After header.
func (l *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.limiterFor(clientIP(r)).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeRateLimited, "too many requests")
			return
		}
		next(w, r)
	}
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maybeCleanup()
	limiter, ok := l.perKey[key]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.perKey[key] = limiter
	}
	return limiter
}

// maybeCleanup drops buckets that have refilled completely. Caller holds mu.
func (l *RateLimiter) maybeCleanup() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < rateLimiterCleanupInterval {
		return
	}
	l.lastCleanup = now
	for key, limiter := range l.perKey {
		if limiter.Tokens() >= float64(l.burst) {
			delete(l.perKey, key)
		}
	}
}

func (l *RateLimiter) retryAfterSeconds() int {
	seconds := int(1 / float64(l.rps))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// clientIP extracts the originating client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
