package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTMiddleware(t *testing.T) {
	utils.ConfigureJWT("test-secret", time.Hour)
	adminToken, err := utils.GenerateJWT(7, "owner@shop.test", "admin")
	require.NoError(t, err)
	clerkToken, err := utils.GenerateJWT(8, "clerk@shop.test", "executive")
	require.NoError(t, err)

	r := gin.New()
	r.Use(LoggingMiddleware())
	authed := r.Group("/", NewJWTMiddleware().Handle())
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(200, gin.H{"id": UserID(c), "role": Role(c)})
	})
	authed.DELETE("/thing", AdminOnly(), func(c *gin.Context) { c.Status(204) })

	tests := []struct {
		name, method, path, header string
		want                       int
	}{
		{"missing header", http.MethodGet, "/me", "", 401},
		{"not bearer", http.MethodGet, "/me", "Basic abc", 401},
		{"bad token", http.MethodGet, "/me", "Bearer nope", 401},
		{"valid token", http.MethodGet, "/me", "Bearer " + clerkToken, 200},
		{"executive cannot delete", http.MethodDelete, "/thing", "Bearer " + clerkToken, 403},
		{"admin can delete", http.MethodDelete, "/thing", "Bearer " + adminToken, 204},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Len(t, w.Header().Get(RequestIDHeader), 8)
		})
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+clerkToken)
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"id":8,"role":"executive"}`, w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://office.example.com", "http://localhost:3000"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(200) })

	tests := []struct {
		name, origin, referer, wantOrigin string
	}{
		{name: "allowed origin", origin: "https://office.example.com", wantOrigin: "https://office.example.com"},
		{name: "explicit default port", origin: "https://office.example.com:443", wantOrigin: "https://office.example.com:443"},
		{name: "origin from referer", referer: "http://localhost:3000/invoices/7", wantOrigin: "http://localhost:3000"},
		{name: "unknown origin", origin: "https://evil.example.com"},
		{name: "no origin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://office.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLoginRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := NewLoginRateLimiter()
	rl.now = func() time.Time { return now }

	for i := 0; i < maxFailedLogins-1; i++ {
		rl.Fail("10.0.0.1")
	}
	assert.False(t, rl.Blocked("10.0.0.1"))
	rl.Fail("10.0.0.1")
	assert.True(t, rl.Blocked("10.0.0.1"))
	assert.False(t, rl.Blocked("10.0.0.2"), "limits are per IP")

	r := gin.New()
	r.POST("/login", rl.Guard(), func(c *gin.Context) { c.Status(200) })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "TOO_MANY_ATTEMPTS")

	now = now.Add(failedLoginWindow + time.Second)
	assert.False(t, rl.Blocked("10.0.0.1"), "the window expires")

	rl.Fail("10.0.0.3")
	rl.Reset("10.0.0.3")
	assert.False(t, rl.Blocked("10.0.0.3"))
}
