package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	t.Run("wildcard allows any origin", func(t *testing.T) {
		w := do(newEngine(CORS([]string{"*"})), http.MethodPost, "/ping", map[string]string{"Origin": "https://anywhere.example"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allow-list echoes a listed origin", func(t *testing.T) {
		r := newEngine(CORS([]string{"https://shop.example.com"}))
		w := do(r, http.MethodPost, "/ping", map[string]string{"Origin": "https://shop.example.com"})
		assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("allow-list ignores other origins", func(t *testing.T) {
		r := newEngine(CORS([]string{"https://shop.example.com"}))
		w := do(r, http.MethodPost, "/ping", map[string]string{"Origin": "https://evil.example"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight returns 204", func(t *testing.T) {
		w := do(newEngine(CORS([]string{"*"})), http.MethodOptions, "/ping", map[string]string{"Origin": "https://x.example"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := do(r, http.MethodPost, "/ping", nil)
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)

	w = do(r, http.MethodPost, "/ping", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewInMemoryRateLimiter(ctx, 2, time.Minute)
	r := newEngine(RateLimit(limiter))

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/ping", nil).Code)
	w := do(r, http.MethodPost, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestInMemoryRateLimiter_WindowSlides(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewInMemoryRateLimiter(ctx, 1, time.Minute)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.False(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("5.6.7.8"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("1.2.3.4"))
}

func TestInMemoryRateLimiter_Disabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewInMemoryRateLimiter(ctx, 0, time.Minute)
	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow("k"))
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := newEngine(RequestID(), Recovery(zap.New(core)))

	w := do(r, http.MethodGet, "/panic", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, "boom", body["details"])
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newEngine(RequestID(), Logger(zap.New(core)))

	do(r, http.MethodPost, "/ping", map[string]string{"X-Request-ID": "req-1"})

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ping", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])
}
