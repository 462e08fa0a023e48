package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"ms-orders/internal/logger"
	"ms-orders/internal/utils"

	"github.com/go-redis/redis/v8"
)

// Limiter is a fixed-window request limiter backed by Redis, shared across
// service replicas. When Redis is unreachable requests pass through; rate
// limiting is protection, not a dependency.
type Limiter struct {
	Client *redis.Client
	Logger *logger.Logger

	Limit  int
	Window time.Duration
}

func New(client *redis.Client, log *logger.Logger, limit int, window time.Duration) *Limiter {
	return &Limiter{Client: client, Logger: log, Limit: limit, Window: window}
}

// Middleware counts requests per client IP per window.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		key := fmt.Sprintf("ratelimit:%s:%d", ip, time.Now().Unix()/int64(l.Window.Seconds()))

		count, err := l.Client.Incr(r.Context(), key).Result()
		if err != nil {
			l.Logger.Warn("RATELIMIT", fmt.Sprintf("redis unavailable, passing request: %v", err))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.Client.Expire(r.Context(), key, l.Window)
		}

		if count > int64(l.Limit) {
			utils.WriteError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
