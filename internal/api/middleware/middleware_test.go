package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/api/middleware"
)

func newRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(buf, nil))

	r := gin.New()
	r.Use(middleware.Logging(logger, "/health"))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestLogging(t *testing.T) {
	t.Run("logs request and passes through", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
		assert.Contains(t, buf.String(), "path=/test")
		assert.Contains(t, buf.String(), "status=200")
	})

	t.Run("captures non-200 status codes", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)

		req := httptest.NewRequest(http.MethodGet, "/notfound", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, buf.String(), "level=WARN")
	})

	t.Run("skips configured paths", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Empty(t, buf.String())
	})
}
