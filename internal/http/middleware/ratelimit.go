package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const defaultLimiterIdleTTL = 10 * time.Minute

// KeyFunc picks the bucket of a request; false lets the request through unlimited.
type KeyFunc func(*http.Request) (string, bool)

// RateLimiter keeps one token bucket per key. Buckets idle longer than the idle
// TTL are swept at most once per TTL.
type RateLimiter struct {
	name       string
	limit      rate.Limit
	burst      int
	retryAfter string
	idleTTL    time.Duration
	now        func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a named limiter allowing reqPerSec with the given burst per key.
func NewRateLimiter(name string, reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		name:       name,
		limit:      rate.Limit(reqPerSec),
		burst:      burst,
		retryAfter: retryAfterSeconds(reqPerSec),
		idleTTL:    defaultLimiterIdleTTL,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

// retryAfterSeconds is the time for one token to refill, rounded up to whole seconds.
func retryAfterSeconds(reqPerSec float64) string {
	if reqPerSec <= 0 {
		return "1"
	}
	secs := int(math.Ceil(1 / reqPerSec))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, other := range l.buckets {
			if now.Sub(other.lastSeen) > l.idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	return b.limiter.AllowN(now, 1)
}

func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Handler limits requests per key.
func (l *RateLimiter) Handler(keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := keyFunc(r)
			if !ok || key == "" || l.allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			if rl := requestLogFrom(r.Context()); rl != nil {
				rl.limitedBy = l.name
			}
			log.Warn().Str("limiter", l.name).Str("key", key).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", l.retryAfter)
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT", "too many requests")
		})
	}
}

// ByIP keys on the client address.
func ByIP(r *http.Request) (string, bool) {
	return realIPFromRequest(r), true
}

// ByResident keys on the authenticated resident; anonymous requests are not limited.
func ByResident(r *http.Request) (string, bool) {
	key := subjectKey(r.Context())
	return key, key != ""
}

// IPRateLimit limits per client address.
func IPRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return limiter.Handler(ByIP)
}

// UserRateLimit limits per resident; it must run after Auth.
func UserRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return limiter.Handler(ByResident)
}

// realIPFromRequest trusts X-Real-IP, then the first X-Forwarded-For hop.
func realIPFromRequest(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
