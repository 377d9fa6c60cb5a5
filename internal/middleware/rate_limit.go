package middleware

import (
	"context"

	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
)

// Limiter is satisfied by the submission limiters in services
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitByClientIP throttles a route per client address, e.g. sign-in
// attempts. Limiter errors let the request through.
func RateLimitByClientIP(limiter Limiter, scope string, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "ip:" + c.ClientIP() + ":" + scope
		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			logger.Warn(ctx, "Rate limiter unavailable, allowing request", map[string]interface{}{
				"scope": scope,
				"error": err.Error(),
			})
			c.Next()
			return
		}
		if !allowed {
			logger.Info(ctx, "Request rate limited", map[string]interface{}{"scope": scope, "client_ip": c.ClientIP()})
			HandleAppError(c, contextutils.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}
