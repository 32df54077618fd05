package middleware

import (
	"fmt"
	"time"

	"codesandbox/internal/common/ratelimit"
	"codesandbox/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RateLimitPolicy bounds requests per client IP and per route within Window.
type RateLimitPolicy struct {
	Window   time.Duration `yaml:"window"`
	IPMax    int           `yaml:"ipMax"`
	RouteMax int           `yaml:"routeMax"`
}

// RateLimitMiddleware enforces per-route rate limiting.
func RateLimitMiddleware(limiter ratelimit.Limiter, routeKey string, policy RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		if policy.IPMax > 0 {
			key := fmt.Sprintf("sandbox:rate:ip:%s:%s", c.ClientIP(), routeKey)
			if err := limiter.Allow(ctx, key, policy.IPMax, policy.Window); err != nil {
				response.AbortWithError(c, err)
				return
			}
		}
		if policy.RouteMax > 0 {
			key := fmt.Sprintf("sandbox:rate:route:%s", routeKey)
			if err := limiter.Allow(ctx, key, policy.RouteMax, policy.Window); err != nil {
				response.AbortWithError(c, err)
				return
			}
		}
		c.Next()
	}
}
