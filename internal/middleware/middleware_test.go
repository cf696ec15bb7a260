package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/thereayou/talk-signaling/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T, mw func(*auth.JWTManager, *redis.Client) gin.HandlerFunc) (*gin.Engine, *auth.JWTManager, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	r := gin.New()
	r.GET("/who", mw(jwtMgr, rdb), func(c *gin.Context) {
		c.String(http.StatusOK, "user=%s", UserID(c))
	})
	return r, jwtMgr, rdb
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOptionalAuth(t *testing.T) {
	r, jwtMgr, rdb := newAuthRouter(t, OptionalAuth)
	uid := uuid.New()
	token, _ := jwtMgr.Generate(uid.String())

	if w := get(r, ""); w.Code != http.StatusOK || w.Body.String() != "user=" {
		t.Fatalf("anonymous: %d %q, want 200 user=", w.Code, w.Body.String())
	}
	if w := get(r, token); w.Body.String() != "user="+uid.String() {
		t.Fatalf("body=%q, want user id", w.Body.String())
	}
	if w := get(r, "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d, want 401", w.Code)
	}

	rdb.Set(context.Background(), BlacklistKey(token), 1, time.Minute)
	if w := get(r, token); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status=%d, want 401", w.Code)
	}
}

func TestAuthMiddleware_RequiresToken(t *testing.T) {
	r, _, _ := newAuthRouter(t, AuthMiddleware)

	if w := get(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
}

func TestOriginFilter(t *testing.T) {
	r := gin.New()
	r.Use(OriginFilter([]string{"http://ok.test"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		method, origin string
		want           int
	}{
		{http.MethodGet, "", http.StatusOK},
		{http.MethodGet, "http://ok.test", http.StatusOK},
		{http.MethodGet, "http://evil.test", http.StatusForbidden},
		{http.MethodOptions, "http://ok.test", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/x", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s from %q: status=%d, want %d", tc.method, tc.origin, w.Code, tc.want)
		}
	}
}
