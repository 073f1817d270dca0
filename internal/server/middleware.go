package server

import (
	"log/slog"
	"net/http"
	"sync"

	"formrelay/internal/security"

	"golang.org/x/time/rate"
)

// maxThrottleKeys caps the number of per-IP buckets kept in memory
const maxThrottleKeys = 10000

// RateLimiter implements a simple token bucket rate limiter per IP address
type RateLimiter struct {
	limiters  map[string]*rate.Limiter
	mu        sync.Mutex
	rateLimit rate.Limit // Requests per second
	burstSize int        // Maximum burst size
}

// NewRateLimiter creates a new rate limiter
// rateLimit: requests per second
// burstSize: maximum number of requests allowed in a burst
func NewRateLimiter(rateLimit rate.Limit, burstSize int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		rateLimit: rateLimit,
		burstSize: burstSize,
	}
}

// GetLimiter returns the rate limiter for a given IP address
// Creates a new limiter for the IP if one doesn't exist
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[ip]
	if !exists {
		if len(rl.limiters) >= maxThrottleKeys {
			// Drop every bucket; new ones start full
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rateLimit, rl.burstSize)
		rl.limiters[ip] = limiter
	}

	return limiter
}

// NewRateLimitMiddleware creates the flood guard for the presence endpoints
// perMinute: sustained requests per minute, also used as the burst size
func NewRateLimitMiddleware(perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	rps := rate.Limit(float64(perMinute) / 60.0)
	limiter := NewRateLimiter(rps, perMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if !limiter.GetLimiter(ip).Allow() {
				logger.Warn("Presence rate limit exceeded", "ip", security.SanitizeLogValue(ip), "path", r.URL.Path)
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "error", "error": "Rate limit exceeded"}, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
