package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/auth"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextToken  = "bearerToken"
)

// denylistTimeout bounds the revocation check so a slow Redis cannot stall
// every authenticated request.
const denylistTimeout = 3 * time.Second

// TokenParser verifies a raw bearer token.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// Denylist answers whether a token has been revoked.
type Denylist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware returns middleware that requires a valid, non-revoked
// bearer token and places its subject and role on the request context.
// A denylist lookup failure is treated as unauthorized.
func AuthMiddleware(parser TokenParser, denylist Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := parser.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if denylist != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), denylistTimeout)
			revoked, err := denylist.IsRevoked(ctx, raw)
			cancel()
			if err != nil || revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, raw)
		c.Next()
	}
}

// RequireRole returns middleware that rejects requests whose token does not
// carry the given role. Must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
