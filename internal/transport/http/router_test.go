package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ptesting "image-sizer-go/internal/platform/testing"
)

func TestBuild_RequestIDAndNoRoute(t *testing.T) {
	cfg := ptesting.SetupTestConfig(t)
	r, err := Build(Options{Config: cfg, Logger: ptesting.SetupTestLogger(t).Legacy()})
	require.NoError(t, err)

	var seen string
	r.API.GET("/echo", func(c *gin.Context) {
		seen = RequestID(c)
		RespondSuccess(c, http.StatusOK, nil, "ok")
	})

	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
	req.Header.Set(HeaderRequestID, "caller-supplied")
	rec = httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestBuild_RequiresConfig(t *testing.T) {
	_, err := Build(Options{})
	assert.Error(t, err)
}
