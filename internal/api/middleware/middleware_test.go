package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/jwt"
	applogger "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT(ttl time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{JWTSecret: "middleware-test-secret-0123", AccessTokenTTL: ttl})
}

func protectedRouter(m *jwt.Manager) *gin.Engine {
	r := gin.New()
	r.GET("/admin", JWTAuth(m), RoleAuth("admin"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func doGet(r http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	m := newTestJWT(time.Minute)
	adminToken, _ := m.GenerateAccessToken("osas-1", "admin")
	studentToken, _ := m.GenerateAccessToken("stu-1", "student")
	expired, _ := newTestJWT(-time.Minute).GenerateAccessToken("osas-1", "admin")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"admin", "Bearer " + adminToken, http.StatusOK},
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + adminToken, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"non-admin role", "Bearer " + studentToken, http.StatusForbidden},
	}
	r := protectedRouter(m)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, "/admin", tt.header)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

type countingLimiter struct {
	hits int
	err  error
}

func (l *countingLimiter) CheckRateLimit(_ context.Context, _ string, limit int, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.hits++
	return l.hits <= limit, nil
}

func TestRateLimit(t *testing.T) {
	l := &countingLimiter{}
	r := gin.New()
	r.GET("/x", RateLimit(l, 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if w := doGet(r, "/x", ""); w.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, w.Code, want)
		}
	}

	l.err = errors.New("redis down")
	if w := doGet(r, "/x", ""); w.Code != http.StatusOK {
		t.Errorf("limiter error must let the request through, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		if got := applogger.RequestID(c.Request.Context()); got != c.GetString(requestIDKey) {
			t.Errorf("request context id = %q, gin id = %q", got, c.GetString(requestIDKey))
		}
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("client request id not propagated: %q", w.Header().Get("X-Request-ID"))
	}

	w = doGet(r, "/x", "")
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("generated request id = %q", w.Header().Get("X-Request-ID"))
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", requestIDMaxLen+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if rid := w.Header().Get("X-Request-ID"); len(rid) != 36 {
		t.Errorf("oversized client id must be replaced, got %q", rid)
	}
}
