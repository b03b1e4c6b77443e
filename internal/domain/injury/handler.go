package injury

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the athlete and doctor sides of the injury workflow.
// Detail reads are guarded per-ticket by the service; the role guards only
// pre-filter the obviously wrong roles.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	athlete := g.Group("", auth.RequireRole(auth.RoleAthlete))
	athlete.POST("/create", h.CreateTicket)
	athlete.GET("/my-tickets", h.ListMyTickets)
	athlete.GET("/my-tickets/:id", h.GetTicket)
	athlete.PUT("/report/:id", h.UpdateReport)
	athlete.DELETE("/:id", h.DeleteTicket)
	athlete.GET("/athlete/tickets/:id/messages", h.ListMessages)
	athlete.GET("/athlete/tickets/:id/assessment", h.GetAssessment)

	doctor := g.Group("/doctor", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/tickets", h.ListDoctorTickets)
	doctor.GET("/tickets/:id", h.GetTicket)
	doctor.GET("/tickets/:id/messages", h.ListMessages)
	doctor.POST("/tickets/:id/messages", h.PostMessage)
	doctor.GET("/tickets/:id/assessment", h.GetAssessment)
	doctor.POST("/tickets/:id/assessment", h.SubmitAssessment)
}

func identity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return id, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid id", map[string]string{"id": "must be a UUID"})
	}
	return id, nil
}

func (h *Handler) CreateTicket(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	var req CreateTicketRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body", nil)
	}

	detail, err := h.svc.CreateTicket(c.Request().Context(), caller, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) GetTicket(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	detail, err := h.svc.GetTicket(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListMyTickets(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	buckets, err := h.svc.ListForAthlete(c.Request().Context(), caller.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, buckets)
}

func (h *Handler) ListDoctorTickets(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	buckets, err := h.svc.ListForDoctor(c.Request().Context(), caller.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, buckets)
}

func (h *Handler) UpdateReport(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req UpdateReportRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body", nil)
	}

	report, err := h.svc.UpdateReport(c.Request().Context(), caller, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) DeleteTicket(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.svc.DeleteTicket(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PostMessage(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body", nil)
	}

	message, err := h.svc.PostMessage(c.Request().Context(), caller, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, message)
}

func (h *Handler) ListMessages(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	messages, err := h.svc.ListMessages(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []*Message{}
	}
	return c.JSON(http.StatusOK, messages)
}

func (h *Handler) SubmitAssessment(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req SubmitAssessmentRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body", nil)
	}

	assessment, err := h.svc.SubmitAssessment(c.Request().Context(), caller, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, assessment)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	assessment, err := h.svc.GetAssessment(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assessment)
}
