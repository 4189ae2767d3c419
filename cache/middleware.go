package cache

import (
	"bytes"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const htmlContentType = "text/html; charset=utf-8"

// Requests counts page cache lookups by result ("hit" or "miss").
var Requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "yatube_page_cache_requests_total",
	Help: "Page cache lookups by result",
}, []string{"result"})

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheMiddleware serves GET requests from store when a fresh entry exists
// and stores successful HTML responses otherwise. The key is the request
// URI plus whatever vary returns for the request (the viewer, typically).
func CacheMiddleware(store Store, vary func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		varyOn := ""
		if vary != nil {
			varyOn = vary(c)
		}
		key := Key(c.Request.Method, c.Request.URL.RequestURI(), varyOn)

		if cached, found := store.Get(c.Request.Context(), key); found {
			Requests.WithLabelValues("hit").Inc()
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, htmlContentType, cached)
			c.Abort()
			return
		}

		Requests.WithLabelValues("miss").Inc()
		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK &&
			c.Writer.Header().Get("Content-Type") == htmlContentType {
			if err := store.Set(c.Request.Context(), key, writer.body.Bytes()); err != nil {
				log.Printf("Error writing page cache: %v", err)
			}
		}
	}
}
