package staffdir

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
)

// Handler exposes assignment directory endpoints.
type Handler struct {
	dir Directory
}

func NewHandler(dir Directory) *Handler {
	return &Handler{dir: dir}
}

// Register mounts assignment routes on the given group.
func (h *Handler) Register(g *echo.Group) {
	g.PUT("/:athleteId", h.Assign, auth.RequireRole(auth.RoleCoach))
	g.GET("/:athleteId", h.Get)
	g.GET("/doctor/:doctorId/athletes", h.AthletesForDoctor, auth.RequireRole(auth.RoleDoctor))
}

type assignRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
}

// Assign sets or replaces the athlete's doctor.
func (h *Handler) Assign(c echo.Context) error {
	identity, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	athleteID, err := uuid.Parse(c.Param("athleteId"))
	if err != nil {
		return apperror.Validation("invalid athlete id", map[string]string{"athleteId": "must be a UUID"})
	}

	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body", nil)
	}
	if req.DoctorID == uuid.Nil {
		return apperror.Validation("doctor_id is required", map[string]string{"doctor_id": "required"})
	}

	a := &Assignment{
		AthleteID:  athleteID,
		DoctorID:   req.DoctorID,
		AssignedBy: identity.ID,
	}
	if err := h.dir.Assign(c.Request().Context(), a); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Get returns the athlete's current assignment. Athletes can only read their
// own.
func (h *Handler) Get(c echo.Context) error {
	identity, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	athleteID, err := uuid.Parse(c.Param("athleteId"))
	if err != nil {
		return apperror.Validation("invalid athlete id", map[string]string{"athleteId": "must be a UUID"})
	}
	if identity.Role == auth.RoleAthlete && identity.ID != athleteID {
		return apperror.Forbidden("athletes can only view their own assignment")
	}

	a, err := h.dir.Get(c.Request().Context(), athleteID)
	if err != nil {
		if errors.Is(err, ErrNoAssignment) {
			return apperror.NotFound("athlete has no assigned doctor")
		}
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// AthletesForDoctor lists the athletes assigned to a doctor. Doctors can only
// list their own roster.
func (h *Handler) AthletesForDoctor(c echo.Context) error {
	identity, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return apperror.Validation("invalid doctor id", map[string]string{"doctorId": "must be a UUID"})
	}
	if identity.Role == auth.RoleDoctor && identity.ID != doctorID {
		return apperror.Forbidden("doctors can only view their own roster")
	}

	athletes, err := h.dir.AthletesForDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	if athletes == nil {
		athletes = []uuid.UUID{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"athlete_ids": athletes})
}
