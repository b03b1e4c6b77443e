package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func requestAs(e *echo.Echo, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if role != "" {
		ctx := WithIdentity(req.Context(), Identity{ID: uuid.New(), Role: role})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/guarded", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RequireRole(RoleDoctor))

	cases := []struct {
		role string
		want int
	}{
		{RoleDoctor, http.StatusOK},
		{RoleAdmin, http.StatusOK}, // admins pass every check
		{RoleAthlete, http.StatusForbidden},
		{RoleSponsor, http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		name := tc.role
		if name == "" {
			name = "unauthenticated"
		}
		t.Run(name, func(t *testing.T) {
			if rec := requestAs(e, tc.role); rec.Code != tc.want {
				t.Errorf("role %q: expected %d, got %d", tc.role, tc.want, rec.Code)
			}
		})
	}
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	e := echo.New()
	e.GET("/guarded", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RequireRole(RoleCoach, RoleDoctor))

	if rec := requestAs(e, RoleCoach); rec.Code != http.StatusOK {
		t.Errorf("expected coach allowed, got %d", rec.Code)
	}
	if rec := requestAs(e, RoleDoctor); rec.Code != http.StatusOK {
		t.Errorf("expected doctor allowed, got %d", rec.Code)
	}
	if rec := requestAs(e, RoleAthlete); rec.Code != http.StatusForbidden {
		t.Errorf("expected athlete forbidden, got %d", rec.Code)
	}
}
