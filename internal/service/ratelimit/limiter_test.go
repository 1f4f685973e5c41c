package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock { return &clock{t: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)} }

func TestLimiterBurstThenRefill(t *testing.T) {
	clk := newClock()
	l := New(3, 2, WithClock(clk.now))

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("a"), "token %d", i)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	clk.advance(500 * time.Millisecond)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	clk.advance(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"), "refill caps at burst")
	}
	assert.False(t, l.Allow("a"))
}

func TestLimiterSweepsIdleKeys(t *testing.T) {
	clk := newClock()
	l := New(1, 1, WithClock(clk.now), WithIdleTTL(time.Minute))
	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	clk.advance(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestMiddlewareReturns429(t *testing.T) {
	e := echo.New()
	e.Use(Middleware(New(1, 0)))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_RATE_LIMITED")
}
