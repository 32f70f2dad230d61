package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/schoolgle/schoolgle/internal/observability/logger"
	"go.uber.org/zap"
)

// TriggerRateLimit throttles score recomputation per API key. Requests pass
// untouched when redis is not configured.
func (s *Server) TriggerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.triggerLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		keyID := c.GetString(contextAPIKeyIDKey)
		result, err := s.triggerLimiter.Allow(ctx, keyID)
		if err != nil {
			// fail open on redis errors
			logger.FromContext(ctx).Warn("trigger rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.FromContext(ctx).Warn("trigger rate limit exceeded",
				zap.String("key_id", keyID),
				zap.String("endpoint", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
