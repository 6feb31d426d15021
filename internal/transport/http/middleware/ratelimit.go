package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aimy-copilot/internal/cache"
	"aimy-copilot/internal/transport/http/response"
)

// RateLimit enforces the per-user chat quota. A Redis failure lets the
// request through: losing precision on the quota beats refusing service.
func RateLimit(limiter *cache.RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserIDKey)
		if userID == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
			c.Abort()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), userID)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request",
				zap.String("user_id", userID),
				zap.Error(err))
			c.Next()
			return
		}
		if remaining, rerr := limiter.Remaining(c.Request.Context(), userID); rerr == nil {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		if !allowed {
			response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited,
				"too many requests, please slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}
