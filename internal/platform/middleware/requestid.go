package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderRequestID is the header carrying the request correlation ID.
const HeaderRequestID = "X-Request-ID"

// RequestID attaches a correlation ID to every request. An incoming
// X-Request-ID header is honored so upstream proxies can trace calls;
// otherwise a fresh UUID is generated. The ID is stored on the echo context
// under "request_id" for the logger and echoed back in the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.New().String()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set(HeaderRequestID, rid)
			return next(c)
		}
	}
}
