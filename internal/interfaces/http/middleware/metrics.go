package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts, latency and in-flight requests labelled by
// route template, so path parameters never explode label cardinality.
func Metrics(m *prometheus.FragmentationMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		done := m.TrackInFlight(path)
		start := time.Now()

		c.Next()

		done()
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// BodyLimit caps request bodies at max bytes. Non-positive max disables it.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
