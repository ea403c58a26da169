package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"PriceCast/pkg/clock"
)

func TestLimiter_ConsumesAndRefills(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := New(2, 1, clk)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	clk.Advance(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	clk.Advance(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestLimiter_DropsIdleFullBuckets(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := New(5, 0.002, clk)

	assert.True(t, l.Allow("10.0.0.1"))
	for i := 0; i < 5; i++ {
		l.Allow("10.0.0.2")
	}
	assert.Equal(t, 2, l.Len())

	// .1 refills its single token within the window, .2 is still drained
	clk.Advance(idleAfter + time.Second)
	assert.True(t, l.Allow("10.0.0.3"))
	assert.Equal(t, 2, l.Len())

	// 601s at 0.002/s buys .2 one token back, not a full bucket
	assert.True(t, l.Allow("10.0.0.2"))
	assert.False(t, l.Allow("10.0.0.2"), "drained bucket keeps its state")
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestLimiter_Middleware(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := New(1, 0.001, clk)

	e := echo.New()
	e.Use(l.Middleware(nil))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
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
