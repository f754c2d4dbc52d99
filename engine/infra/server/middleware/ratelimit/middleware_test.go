package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/engine/infra/server/middleware/auth"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRouterForTest(t *testing.T, cfg config.RateLimitConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mw, err := NewMiddleware(cfg)
	require.NoError(t, err)
	r.Use(auth.Middleware("X-Uid"), mw)
	r.GET("/t", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doReq(r *gin.Engine, ip, uid string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", http.NoBody)
	req.RemoteAddr = ip + ":1234"
	if uid != "" {
		req.Header.Set("X-Uid", uid)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestNewMiddleware(t *testing.T) {
	t.Run("Should pass every request through when the limit is zero", func(t *testing.T) {
		r := buildRouterForTest(t, config.RateLimitConfig{})
		for range 5 {
			assert.Equal(t, http.StatusOK, doReq(r, "1.2.3.4", "").Code)
		}
	})

	t.Run("Should reject a positive limit without a period", func(t *testing.T) {
		_, err := NewMiddleware(config.RateLimitConfig{Limit: 1})
		require.Error(t, err)
	})

	t.Run("Should block the second request from the same address", func(t *testing.T) {
		r := buildRouterForTest(t, config.RateLimitConfig{Limit: 1, Period: time.Minute})
		first := doReq(r, "1.2.3.4", "")
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
		second := doReq(r, "1.2.3.4", "")
		require.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, "application/problem+json", second.Header().Get("Content-Type"))
		assert.Contains(t, second.Body.String(), "RATE_LIMITED")
	})

	t.Run("Should key authenticated callers by uid", func(t *testing.T) {
		r := buildRouterForTest(t, config.RateLimitConfig{Limit: 1, Period: time.Minute})
		require.Equal(t, http.StatusOK, doReq(r, "1.2.3.4", "alice").Code)
		assert.Equal(t, http.StatusOK, doReq(r, "1.2.3.4", "bob").Code)
		assert.Equal(t, http.StatusOK, doReq(r, "1.2.3.4", "").Code)
		assert.Equal(t, http.StatusTooManyRequests, doReq(r, "5.6.7.8", "alice").Code)
	})

	t.Run("Should refill after the period elapses", func(t *testing.T) {
		r := buildRouterForTest(t, config.RateLimitConfig{Limit: 1, Period: 100 * time.Millisecond})
		require.Equal(t, http.StatusOK, doReq(r, "9.9.9.9", "").Code)
		require.Equal(t, http.StatusTooManyRequests, doReq(r, "9.9.9.9", "").Code)
		time.Sleep(150 * time.Millisecond)
		assert.Equal(t, http.StatusOK, doReq(r, "9.9.9.9", "").Code)
	})
}
