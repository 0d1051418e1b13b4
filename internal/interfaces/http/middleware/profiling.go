package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
)

// Profiling labels CPU samples taken while serving a request with its method
// and route pattern, so continuous profiles can be split per endpoint.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		telemetry.WithRequestLabels(c.Request.Context(), c.Request.Method, route, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
