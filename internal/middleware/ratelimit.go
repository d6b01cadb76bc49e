package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	count int
	until time.Time
}

// RateLimiter is a fixed-window counter per client IP.
type RateLimiter struct {
	limit int
	per   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter allows limit requests per window for each client.
func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		per:     per,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// RateLimit is shorthand for NewRateLimiter(limit, per).Handler.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	return NewRateLimiter(limit, per).Handler
}

// Allow consumes one request for key and reports how long until the window
// resets when the limit is exhausted.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.until) {
		if len(l.buckets) > 4096 {
			l.evictLocked(now)
		}
		b = &bucket{until: now.Add(l.per)}
		l.buckets[key] = b
	}
	if b.count >= l.limit {
		return false, b.until.Sub(now)
	}
	b.count++
	return true, 0
}

func (l *RateLimiter) evictLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.After(b.until) {
			delete(l.buckets, k)
		}
	}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.Allow(clientIPForRateLimit(r))
		if !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"}}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
