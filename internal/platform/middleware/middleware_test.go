package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, mw...)
	return e
}

func TestRequestID_Generated(t *testing.T) {
	e := newEcho(RequestID())
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("expected a generated request ID header")
	}
}

func TestRequestID_Passthrough(t *testing.T) {
	e := newEcho(RequestID())
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "upstream-id-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "upstream-id-42" {
		t.Errorf("expected upstream ID to be honored, got %q", got)
	}
}

func TestRateLimit_ExhaustsBurst(t *testing.T) {
	// A tiny refill rate keeps the bucket empty once the burst is spent.
	e := newEcho(RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on throttled response")
	}
}

func TestRateLimit_PerClientBuckets(t *testing.T) {
	e := newEcho(RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1}))

	first := httptest.NewRequest(http.MethodGet, "/ping", nil)
	first.Header.Set("X-Real-IP", "10.0.0.1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// The same client is now throttled.
	again := httptest.NewRequest(http.MethodGet, "/ping", nil)
	again.Header.Set("X-Real-IP", "10.0.0.1")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, again)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for exhausted client, got %d", rec.Code)
	}

	// A different client has its own bucket.
	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.Header.Set("X-Real-IP", "10.0.0.2")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for fresh client, got %d", rec.Code)
	}
}
