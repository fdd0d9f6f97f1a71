package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter allows a fixed number of requests per client per minute.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
	logger   *zerolog.Logger
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter for limit requests per minute per
// client. Call Run to evict idle clients.
func NewRateLimiter(limit int, logger *zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   time.Minute,
		now:      time.Now,
		logger:   logger,
	}
}

// Run evicts clients idle for ten windows until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if rl.now().Sub(v.lastReset) > 10*rl.window {
			delete(rl.visitors, ip)
		}
	}
}

// Allow takes a token for ip and reports whether one was available.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		v = &visitor{tokens: rl.limit, lastReset: now}
		rl.visitors[ip] = v
	}
	if v.tokens == 0 {
		return false
	}
	v.tokens--
	return true
}

// RateLimit rejects requests over the limit with 429.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.Allow(ip) {
				rl.logger.Warn().
					Str("ip", ip).
					Str("path", r.URL.Path).
					Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests,
					`{"data":null,"error":{"code":"RATE_LIMITED","message":"Rate limit exceeded","details":"Too many requests. Please try again later."}}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the first X-Forwarded-For hop, else the remote host.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
