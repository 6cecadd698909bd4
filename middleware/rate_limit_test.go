package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Requests: 10, Window: time.Minute})

	assert.NotNil(t, rl)
	assert.Equal(t, 10, rl.config.Requests)
	assert.NotNil(t, rl.config.KeyFunc)
	assert.Equal(t, "Too many requests. Please try again later.", rl.config.Message)
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	serve := func(rl *RateLimiter, user string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if user != "" {
			c.Set(ContextKeyUser, &User{Name: user})
		}
		handler := rl.Middleware()(func(c echo.Context) error {
			return c.String(http.StatusOK, "success")
		})
		return rec, handler(c)
	}

	t.Run("WithinLimit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Second})
		for i := 0; i < 2; i++ {
			rec, err := serve(rl, "")
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("ExceededLimit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Second})
		_, err := serve(rl, "ana")
		require.NoError(t, err)

		_, err = serve(rl, "ana")
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusTooManyRequests, he.Code)

		// other callers have their own bucket
		_, err = serve(rl, "ben")
		assert.NoError(t, err)
	})

	t.Run("WindowResets", func(t *testing.T) {
		rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute})
		clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return clock }

		_, err := serve(rl, "ana")
		require.NoError(t, err)
		_, err = serve(rl, "ana")
		assert.Error(t, err)

		clock = clock.Add(2 * time.Minute)
		assert.Equal(t, 1, rl.Sweep())
		_, err = serve(rl, "ana")
		assert.NoError(t, err)
	})
}
