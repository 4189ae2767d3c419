// Package analytics records who visits what, as Prometheus metrics.
package analytics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Visits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_http_requests_total",
		Help: "HTTP requests by route, method, status and browser family",
	}, []string{"route", "method", "status", "browser"})

	Duration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Middleware counts every request once it has been served. Unknown paths
// share a single "unmatched" route label.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		Visits.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
			Browser(c.Request.UserAgent()),
		).Inc()
		Duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Browser maps a User-Agent onto a small fixed set of browser families.
func Browser(userAgent string) string {
	if userAgent == "" {
		return "none"
	}

	ua := strings.ToLower(userAgent)

	// more specific browsers first
	switch {
	case strings.Contains(ua, "edg"):
		return "edge"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		return "opera"
	case strings.Contains(ua, "chrome"):
		return "chrome"
	case strings.Contains(ua, "safari"):
		return "safari"
	case strings.Contains(ua, "firefox"):
		return "firefox"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident"):
		return "ie"
	case strings.Contains(ua, "bot") || strings.Contains(ua, "spider") || strings.Contains(ua, "crawl"):
		return "bot"
	}
	return "other"
}
