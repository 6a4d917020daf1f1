package ratelimit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/rpsls/go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Window(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := ratelimit.NewMemoryLimiter(3, time.Minute, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)

	// other keys are independent
	res, _ = l.Allow(ctx, "other")
	assert.True(t, res.Allowed)

	clock.Advance(time.Minute + time.Second)
	res, _ = l.Allow(ctx, "k")
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_SlidesGradually(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := ratelimit.NewMemoryLimiter(2, 10*time.Second, clock)
	ctx := context.Background()

	l.Allow(ctx, "k")
	clock.Advance(6 * time.Second)
	l.Allow(ctx, "k")

	res, _ := l.Allow(ctx, "k")
	assert.False(t, res.Allowed)

	// the first request leaves the window, the second is still inside
	clock.Advance(5 * time.Second)
	res, _ = l.Allow(ctx, "k")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "k")
	assert.False(t, res.Allowed)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := ratelimit.NewMemoryLimiter(5, time.Minute, clock)
	ctx := context.Background()

	l.Allow(ctx, "a")
	l.Allow(ctx, "b")
	assert.Equal(t, 2, l.Keys())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, l.Sweep())
	assert.Equal(t, 0, l.Keys())
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("backend down")
}

func TestMiddleware(t *testing.T) {
	clock := clockwork.NewFakeClock()
	handler := ratelimit.Middleware(ratelimit.Config{
		Limiter: ratelimit.NewMemoryLimiter(2, 15*time.Minute, clock),
		Clock:   clock,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222").Code)

	rec := call("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), ratelimit.DefaultMessage)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))

	clock.Advance(5 * time.Minute)
	rec = call("10.0.0.1:4444")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111").Code)
}

func TestMiddleware_EncodesMessage(t *testing.T) {
	const message = `Slow down, "player"`
	clock := clockwork.NewFakeClock()
	handler := ratelimit.Middleware(ratelimit.Config{
		Limiter: ratelimit.NewMemoryLimiter(1, time.Minute, clock),
		Clock:   clock,
		Message: message,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, message, body["error"])
}

func TestMiddleware_FailsOpen(t *testing.T) {
	handler := ratelimit.Middleware(ratelimit.Config{Limiter: failingLimiter{}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "ip:192.0.2.10", ratelimit.ClientIP(false)(req))
	assert.Equal(t, "ip:203.0.113.7", ratelimit.ClientIP(true)(req))
}
