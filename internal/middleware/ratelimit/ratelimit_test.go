package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPerIP(t *testing.T) {
	t.Parallel()

	mw, err := PerIP("2-M")
	require.NoError(t, err)

	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)

	first := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)

	blocked := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Contains(t, blocked.Body.String(), "rate limit exceeded")

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.2").Code, "other clients keep their own budget")
}

func TestPerIP_Disabled(t *testing.T) {
	t.Parallel()

	mw, err := PerIP("")
	require.NoError(t, err)

	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	}
}

func TestPerIP_BadRate(t *testing.T) {
	t.Parallel()

	_, err := PerIP("lots")
	assert.Error(t, err)
}
