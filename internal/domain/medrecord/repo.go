package medrecord

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrReportNotFound = errors.New("medical report not found")

// Repository persists medical reports.
type Repository interface {
	Create(ctx context.Context, r *MedicalReport) error
	Update(ctx context.Context, r *MedicalReport) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalReport, error)
	// ListByAthlete returns summaries newest first.
	ListByAthlete(ctx context.Context, athleteID uuid.UUID, limit, offset int) ([]*Summary, int, error)
	// ListByDoctor returns summaries of the doctor's own reports.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Summary, int, error)
}
