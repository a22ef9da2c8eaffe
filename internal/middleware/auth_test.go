package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/auth"
)

type stubDenylist struct {
	revoked bool
	err     error
}

func (s *stubDenylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.revoked, s.err
}

func newAuthRouter(tokens *auth.Tokens, denylist Denylist) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", AuthMiddleware(tokens, denylist), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user": c.GetString(ContextUserID),
			"role": c.GetString(ContextRole),
		})
	})
	return router
}

func doGet(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	router := newAuthRouter(tokens, &stubDenylist{})

	raw, err := tokens.Issue("driver-1", auth.RoleDriver)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	w := doGet(router, "Bearer "+raw)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	router := newAuthRouter(auth.NewTokens("secret", time.Hour), &stubDenylist{})

	if w := doGet(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a header, got %d", w.Code)
	}
	if w := doGet(router, "Token abc"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a non-bearer scheme, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsRevokedToken(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	router := newAuthRouter(tokens, &stubDenylist{revoked: true})

	raw, _ := tokens.Issue("rider-1", auth.RoleRider)
	if w := doGet(router, "Bearer "+raw); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a revoked token, got %d", w.Code)
	}
}

func TestAuthMiddlewareFailsClosedOnDenylistError(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	router := newAuthRouter(tokens, &stubDenylist{err: errors.New("redis down")})

	raw, _ := tokens.Issue("rider-1", auth.RoleRider)
	if w := doGet(router, "Bearer "+raw); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 when the denylist is unreachable, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/driver-only",
		AuthMiddleware(tokens, &stubDenylist{}),
		RequireRole(auth.RoleDriver),
		func(c *gin.Context) { c.Status(http.StatusNoContent) },
	)

	riderToken, _ := tokens.Issue("rider-1", auth.RoleRider)
	req := httptest.NewRequest(http.MethodPost, "/driver-only", nil)
	req.Header.Set("Authorization", "Bearer "+riderToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a rider on a driver route, got %d", w.Code)
	}

	driverToken, _ := tokens.Issue("driver-1", auth.RoleDriver)
	req = httptest.NewRequest(http.MethodPost, "/driver-only", nil)
	req.Header.Set("Authorization", "Bearer "+driverToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for a driver, got %d", w.Code)
	}
}
