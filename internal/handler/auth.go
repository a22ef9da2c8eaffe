package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/middleware"
)

// TokenRevoker revokes a bearer token for the given duration.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

// AuthHandler handles session endpoints.
type AuthHandler struct {
	denylist TokenRevoker
	tokenTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler. tokenTTL bounds how long a
// revoked token stays denylisted; past its natural expiry the entry is dead
// weight anyway.
func NewAuthHandler(denylist TokenRevoker, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{denylist: denylist, tokenTTL: tokenTTL}
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.ContextToken)
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
		return
	}

	if err := h.denylist.Revoke(c.Request.Context(), token, h.tokenTTL); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"logged_out": true})
}
