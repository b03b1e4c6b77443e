package medrecord

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
)

type testServer struct {
	e      *echo.Echo
	caller *auth.Identity
}

func newTestServer(svc *Service) *testServer {
	ts := &testServer{caller: &auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}}

	e := echo.New()
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(zerolog.Nop())
	g := e.Group("/medical-reports", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), *ts.caller)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(g)
	ts.e = e
	return ts
}

func (ts *testServer) do(t *testing.T, as auth.Identity, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	*ts.caller = as

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAndFetch(t *testing.T) {
	svc := NewService(newMockRepo())
	ts := newTestServer(svc)
	doctor := auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}
	athleteID := uuid.New()

	rec := ts.do(t, doctor, http.MethodPost, "/medical-reports", validRequest(athleteID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created MedicalReport
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Athlete reads their own report.
	athlete := auth.Identity{ID: athleteID, Role: auth.RoleAthlete}
	rec = ts.do(t, athlete, http.MethodGet, "/medical-reports/me/"+created.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_AthleteCannotCreate(t *testing.T) {
	svc := NewService(newMockRepo())
	ts := newTestServer(svc)
	athlete := auth.Identity{ID: uuid.New(), Role: auth.RoleAthlete}

	rec := ts.do(t, athlete, http.MethodPost, "/medical-reports", validRequest(uuid.New()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ListMine_Paginated(t *testing.T) {
	svc := NewService(newMockRepo())
	ts := newTestServer(svc)
	doctor := auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}
	athleteID := uuid.New()

	for _, d := range []string{"2024-01-01", "2024-02-01"} {
		req := validRequest(athleteID)
		req.ReportDate = d
		rec := ts.do(t, doctor, http.MethodPost, "/medical-reports", req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: %d: %s", rec.Code, rec.Body.String())
		}
	}

	athlete := auth.Identity{ID: athleteID, Role: auth.RoleAthlete}
	rec := ts.do(t, athlete, http.MethodGet, "/medical-reports/me?limit=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data    []*Summary `json:"data"`
		Total   int        `json:"total"`
		HasMore bool       `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 1 || !resp.HasMore {
		t.Errorf("unexpected page: %s", rec.Body.String())
	}
}

func TestHandler_DeleteByOtherDoctorForbidden(t *testing.T) {
	svc := NewService(newMockRepo())
	ts := newTestServer(svc)
	doctor := auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}

	report, err := svc.Create(context.Background(), doctor, validRequest(uuid.New()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}
	rec := ts.do(t, other, http.MethodDelete, "/medical-reports/"+report.ID.String(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}
