package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit=%d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset=0, got %d", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := paramsFor(t, "limit=50&offset=10")
	if p.Limit != 50 {
		t.Errorf("expected limit=50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset=10, got %d", p.Offset)
	}
}

func TestFromContext_ClampsLimit(t *testing.T) {
	p := paramsFor(t, "limit=9999")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit=%d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeValues(t *testing.T) {
	p := paramsFor(t, "limit=-5&offset=-3")
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit=%d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset=0, got %d", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	resp := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !resp.HasMore {
		t.Error("expected HasMore=true")
	}

	resp = NewResponse([]int{1}, 4, 3, 3)
	if resp.HasMore {
		t.Error("expected HasMore=false")
	}
}

func TestParams_SQL(t *testing.T) {
	p := Params{Limit: 25, Offset: 50}
	if got := p.SQL(); got != "LIMIT 25 OFFSET 50" {
		t.Errorf("unexpected SQL clause: %s", got)
	}
}
