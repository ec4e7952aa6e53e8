package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tonvanhoang/BE/pkg/config"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter throttles requests per client IP with a token bucket.
// Socket upgrades and completion-API calls share the same budget.
func NewIPRateLimiter(logger *slog.Logger, cfg config.RateLimitConfig) Middleware {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*ipLimiter)
	)

	get := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if l, ok := limiters[ip]; ok {
			l.lastSeen = time.Now()
			return l.limiter
		}
		// prune idle entries before growing the map further
		if len(limiters) > 1024 {
			cutoff := time.Now().Add(-10 * time.Minute)
			for k, l := range limiters {
				if l.lastSeen.Before(cutoff) {
					delete(limiters, k)
				}
			}
		}
		l := &ipLimiter{
			limiter:  rate.NewLimiter(rate.Limit(cfg.PerIP), cfg.Burst),
			lastSeen: time.Now(),
		}
		limiters[ip] = l
		return l.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.PerIP <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				logger.Error("Rate limiter could not find request metadata in context. Check middleware order.")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			if !get(reqMeta.IP).Allow() {
				logger.Warn("Request rate limit exceeded", slog.String("ip", reqMeta.IP))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
