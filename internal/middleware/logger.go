package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID returns middleware that assigns each request an id, honoring a
// caller-supplied one, and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger returns middleware that logs one line per request with
// method, path, status, latency and request id.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Printf("[http] %s %s status=%d latency=%s request_id=%s",
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			c.GetString("requestID"),
		)
	}
}
