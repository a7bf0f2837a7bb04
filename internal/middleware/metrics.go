package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/kb-api/internal/service"
)

// Metrics records one observation per request, keyed by method and route
// template so path parameters do not explode the label space.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
