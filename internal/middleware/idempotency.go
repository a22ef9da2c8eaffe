package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	idempotencyPrefix = "idempotency:"
)

// storedReply is the replayable part of a completed request.
type storedReply struct {
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// captureWriter tees the response body so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency returns middleware that replays the stored response for a
// repeated mutating request carrying the same Idempotency-Key. Responses in
// the 2xx-4xx range are stored for 24 hours; a Redis outage degrades to
// processing the request normally.
func Idempotency(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyPrefix + key

		if reply := loadReply(ctx, client, cacheKey); reply != nil {
			contentType := reply.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
			c.Data(reply.StatusCode, contentType, reply.Body)
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 500 {
			storeReply(ctx, client, cacheKey, &storedReply{
				StatusCode:  status,
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        w.body.Bytes(),
			})
		}
	}
}

func loadReply(ctx context.Context, client *redis.Client, key string) *storedReply {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}

	var reply storedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil
	}
	return &reply
}

func storeReply(ctx context.Context, client *redis.Client, key string, reply *storedReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	_ = client.Set(ctx, key, data, idempotencyTTL).Err()
}
