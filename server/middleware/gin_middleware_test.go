package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rqmstats/server/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGinRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinRequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		assert.Equal(t, GetRequestIDFromGin(c), GetRequestID(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = serve(r, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestGetRequestIDFromGin_Missing(t *testing.T) {
	assert.Equal(t, "", GetRequestIDFromGin(nil))

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetRequestIDFromGin(c))
}

func TestGinRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinRequestIDMiddleware(), GinRecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Error)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body.RequestID)
}

func TestGinHandleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"validation", apperrors.NewValidationError("unknown stat: X", nil), http.StatusBadRequest, "unknown stat: X"},
		{"internal hides details", apperrors.NewInternalError("query failed", errors.New("secret path")), http.StatusInternalServerError, "Internal server error"},
		{"plain error", errors.New("raw"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { GinHandleError(c, tt.err) })

			rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMessage, body.Error)
			assert.NotContains(t, rec.Body.String(), "secret path")
		})
	}
}

func TestGinRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinRateLimitMiddleware(0.001, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestGinRateLimitMiddleware_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(GinRateLimitMiddleware(0, 0))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeRecorder struct {
	requests []recordedRequest
}

func (f *fakeRecorder) HTTPRequest(method, route string, status int, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{method, route, status})
}

func TestGinMetricsMiddleware(t *testing.T) {
	rec := &fakeRecorder{}
	r := gin.New()
	r.Use(GinMetricsMiddleware(rec))
	r.GET("/api/radars/:radar/biases", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/api/radars/R7/biases", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, rec.requests, 2)
	assert.Equal(t, recordedRequest{"GET", "/api/radars/:radar/biases", http.StatusOK}, rec.requests[0])
	assert.Equal(t, recordedRequest{"GET", "", http.StatusNotFound}, rec.requests[1])
}

func TestGinGzipMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinGzipMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "radar radar radar radar") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := serve(r, req)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}
