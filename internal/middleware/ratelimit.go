package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // requests allowed per client per window
	Window            time.Duration // fixed window length
	KeyPrefix         string        // Redis key prefix, one per limited route group
}

// RateLimitMiddleware counts requests per client in a fixed Redis window.
// Redis failures let the request through.
func RateLimitMiddleware(redisClient redis.Cmdable, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := r.RemoteAddr
			if userID, ok := GetUserID(r.Context()); ok {
				clientID = "user:" + userID
			}
			key := config.KeyPrefix + ":" + clientID

			var incr *redis.IntCmd
			var ttl *redis.DurationCmd
			_, err := redisClient.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(r.Context(), key)
				pipe.ExpireNX(r.Context(), key, config.Window)
				ttl = pipe.TTL(r.Context(), key)
				return nil
			})
			if err != nil {
				logger.Error("Failed to update rate limit counter",
					zap.Error(err),
					zap.String("key", key),
				)
				next.ServeHTTP(w, r)
				return
			}

			count := incr.Val()
			reset := ttl.Val()
			if reset <= 0 {
				reset = config.Window
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

			if count > int64(config.RequestsPerWindow) {
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.String("path", r.URL.Path),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(reset.Round(time.Second).Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(config.RequestsPerWindow)-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}
