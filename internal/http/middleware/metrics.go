package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/finsights-backend/internal/observability"
)

// Scrape and liveness routes are hit on a fixed schedule and would swamp the
// document route series.
var unmeteredRoutes = map[string]bool{
	"/metrics":     true,
	"/healthcheck": true,
}

// Metrics records per-route counts and latency, plus error responses keyed by
// the error code the handler wrote.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if unmeteredRoutes[c.FullPath()] {
			c.Next()
			return
		}
		start := time.Now()
		m.APIInflightInc()
		defer m.APIInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(status), time.Since(start))
		if status < 400 {
			return
		}
		code := c.GetString("error_code")
		if code == "" {
			code = strconv.Itoa(status)
		}
		m.ObserveAPIError(route, code)
	}
}
