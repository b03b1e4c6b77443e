package medrecord

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
	"github.com/athlos/athlos/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the doctor and athlete sides of the medical report
// store.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	doctor := g.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("", h.Create)
	doctor.PUT("/:id", h.Update)
	doctor.DELETE("/:id", h.Delete)
	doctor.GET("/:id", h.GetDetail)
	doctor.GET("/mine", h.ListAuthored)
	doctor.GET("/athlete/:athleteId", h.ListForAthlete)

	athlete := g.Group("/me", auth.RequireRole(auth.RoleAthlete))
	athlete.GET("", h.ListMine)
	athlete.GET("/:id", h.GetDetail)
}

func identity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid id", map[string]string{name: "must be a UUID"})
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body", nil)
	}

	report, err := h.svc.Create(c.Request().Context(), caller, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, report)
}

func (h *Handler) Update(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ReportRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body", nil)
	}

	report, err := h.svc.Update(c.Request().Context(), caller, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Delete(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetDetail(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.svc.GetDetail(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// ListMine serves the athlete's own paginated report summaries.
func (h *Handler) ListMine(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForAthlete(c.Request().Context(), caller, caller.ID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Summary{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// ListForAthlete serves a doctor's view of an athlete's report summaries.
func (h *Handler) ListForAthlete(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	athleteID, err := pathID(c, "athleteId")
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForAthlete(c.Request().Context(), caller, athleteID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Summary{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAuthored(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAuthored(c.Request().Context(), caller, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Summary{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
