package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindForbidden, http.StatusForbidden},
		{KindConflict, http.StatusConflict},
		{Kind(99), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.kind.HTTPStatus(); got != tc.want {
			t.Errorf("kind %d: expected %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestIsKind(t *testing.T) {
	err := NotFound("ticket not found")
	if !IsKind(err, KindNotFound) {
		t.Error("expected KindNotFound match")
	}
	if IsKind(err, KindConflict) {
		t.Error("unexpected KindConflict match")
	}

	wrapped := fmt.Errorf("looking up ticket: %w", Conflict("already closed"))
	if !IsKind(wrapped, KindConflict) {
		t.Error("expected match through wrapping")
	}

	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("plain errors should not match any kind")
	}
}

func serve(handler echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())
	e.GET("/", handler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHTTPErrorHandler_TypedError(t *testing.T) {
	rec := serve(func(c echo.Context) error {
		return Validation("invalid injury report", map[string]string{"pain_level": "must be between 1 and 10"})
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "invalid injury report" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
	if body.Fields["pain_level"] == "" {
		t.Error("expected field detail to be preserved")
	}
}

func TestHTTPErrorHandler_EchoError(t *testing.T) {
	rec := serve(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHTTPErrorHandler_UnexpectedError(t *testing.T) {
	rec := serve(func(c echo.Context) error {
		return errors.New("pool exhausted")
	})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	// Internals must not leak to the client.
	if rec.Body.String() == "" || !json.Valid(rec.Body.Bytes()) {
		t.Fatalf("expected JSON body, got %q", rec.Body.String())
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "internal server error" {
		t.Errorf("expected generic message, got %q", body.Error)
	}
}
