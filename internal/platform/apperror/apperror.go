// Package apperror defines the typed failure taxonomy shared by every
// domain operation: validation, not-found, forbidden, and conflict. Expected
// failures travel to the HTTP boundary unmodified; anything outside the
// taxonomy is logged and rendered as a generic server error.
package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Kind classifies an expected failure.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
)

// Error is an expected, typed failure.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries field-level validation detail, keyed by field name.
	Fields map[string]string
}

func (e *Error) Error() string { return e.Message }

// Validation reports missing or out-of-range input. fields may be nil.
func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// NotFound reports an absent resource.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Forbidden reports a caller acting outside its permissions, with a
// human-readable reason.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Conflict reports a status-conditioned write that lost a race or a
// write-once record that already exists. The caller should refresh and
// decide whether to retry.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// HTTPStatus maps a Kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

type response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPErrorHandler returns an echo error handler that renders the taxonomy
// as JSON. Errors outside the taxonomy (and non-HTTP errors from echo) are
// logged and surfaced as a generic 500 without leaking internals.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		if errors.As(err, &appErr) {
			_ = c.JSON(appErr.Kind.HTTPStatus(), response{Error: appErr.Message, Fields: appErr.Fields})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(httpErr.Code)
			}
			_ = c.JSON(httpErr.Code, response{Error: msg})
			return
		}

		rid, _ := c.Get("request_id").(string)
		logger.Error().Err(err).
			Str("request_id", rid).
			Str("path", c.Request().URL.Path).
			Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, response{Error: "internal server error"})
	}
}
