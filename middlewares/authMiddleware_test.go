package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coverlane/agency_backend/utils"
	"github.com/gin-gonic/gin"
)

func authTestRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/ping", handler)
	return r
}

func TestAuthMiddleware_MalformedHeaderRejected(t *testing.T) {
	// Headers shorter than the "Bearer " prefix must be rejected, not
	// sliced: auth[len(bearer):] on "abc" is out of range.
	cases := []string{"abc", "Bearer", "bearer x", "Token abc", "B"}
	for _, header := range cases {
		r := authTestRouter(func(c *gin.Context) { c.Status(http.StatusNoContent) })
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, w.Code)
		}
	}
}

func TestAuthMiddleware_NoHeaderPassesThrough(t *testing.T) {
	r := authTestRouter(func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through without header, got %d", w.Code)
	}
}

func TestAuthMiddleware_ValidTokenExposesClaim(t *testing.T) {
	token, err := utils.JwtGenerate(42, "bot")
	if err != nil {
		t.Fatal(err)
	}

	var claim *utils.JwtCustomClaim
	r := authTestRouter(func(c *gin.Context) {
		claim = CtxValue(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", w.Code)
	}
	if claim == nil || claim.ID != 42 || claim.Role != "bot" {
		t.Fatalf("expected claim id=42 role=bot, got %+v", claim)
	}
}

func TestAuthMiddleware_GarbageTokenRejected(t *testing.T) {
	r := authTestRouter(func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
}
