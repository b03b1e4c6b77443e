package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Platform roles. Every authenticated account carries exactly one.
const (
	RoleAthlete = "athlete"
	RoleDoctor  = "doctor"
	RoleCoach   = "coach"
	RoleSponsor = "sponsor"
	RoleAdmin   = "admin"
)

// Identity is the authenticated caller, resolved once per request by the
// auth middleware. Domain code reads it from the request context and never
// parses credentials itself.
type Identity struct {
	ID   uuid.UUID
	Role string
}

type contextKey string

const identityKey contextKey = "identity"

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	// SigningKey is the HMAC secret shared with the identity provider.
	SigningKey []byte
}

// JWTMiddleware validates the bearer token and places the caller's Identity
// on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			uid, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
			}
			if claims.Role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing role claim")
			}

			ctx := WithIdentity(c.Request().Context(), Identity{ID: uid, Role: claims.Role})
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development. Requests
// without an Authorization header get a default identity whose ID and role
// can be overridden via X-Debug-User and X-Debug-Role headers.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := Identity{ID: uuid.New(), Role: RoleAdmin}
			if v := c.Request().Header.Get("X-Debug-User"); v != "" {
				if uid, err := uuid.Parse(v); err == nil {
					id.ID = uid
				}
			}
			if v := c.Request().Header.Get("X-Debug-Role"); v != "" {
				id.Role = v
			}
			ctx := WithIdentity(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller. The second return
// value is false when no auth middleware ran (e.g. unauthenticated routes).
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
