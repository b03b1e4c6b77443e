package medrecord

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
)

const dateLayout = "2006-01-02"

// ReportRequest is the doctor's create/update payload.
type ReportRequest struct {
	AthleteID               uuid.UUID              `json:"athlete_id"`
	ReportDate              string                 `json:"report_date"`
	TestName                string                 `json:"test_name"`
	Vitals                  Vitals                 `json:"vitals"`
	MedicalStatus           string                 `json:"medical_status"`
	MedicalClearance        string                 `json:"medical_clearance"`
	ChronicMedicalCondition string                 `json:"chronic_medical_condition"`
	PrescribedMedications   []PrescribedMedication `json:"prescribed_medications"`
	TestResults             json.RawMessage        `json:"test_results"`
	PhysicianNotes          string                 `json:"physician_notes"`
	Recommendations         []string               `json:"recommendations"`
	NextCheckupDate         string                 `json:"next_checkup_date"`
	Attachments             []Attachment           `json:"attachments"`
}

// Validate checks required fields and converts the request into a report.
func (r *ReportRequest) Validate() (*MedicalReport, error) {
	fields := map[string]string{}

	if r.AthleteID == uuid.Nil {
		fields["athlete_id"] = "required"
	}
	if r.TestName == "" {
		fields["test_name"] = "required"
	}

	var reportDate time.Time
	if r.ReportDate == "" {
		fields["report_date"] = "required"
	} else {
		var err error
		reportDate, err = time.Parse(dateLayout, r.ReportDate)
		if err != nil {
			fields["report_date"] = "must be a date in YYYY-MM-DD format"
		}
	}

	var nextCheckup *time.Time
	if r.NextCheckupDate != "" {
		d, err := time.Parse(dateLayout, r.NextCheckupDate)
		if err != nil {
			fields["next_checkup_date"] = "must be a date in YYYY-MM-DD format"
		} else {
			nextCheckup = &d
		}
	}

	if len(fields) > 0 {
		return nil, apperror.Validation("invalid medical report", fields)
	}

	return &MedicalReport{
		AthleteID:               r.AthleteID,
		ReportDate:              reportDate,
		TestName:                r.TestName,
		Vitals:                  r.Vitals,
		MedicalStatus:           r.MedicalStatus,
		MedicalClearance:        r.MedicalClearance,
		ChronicMedicalCondition: r.ChronicMedicalCondition,
		PrescribedMedications:   r.PrescribedMedications,
		TestResults:             r.TestResults,
		PhysicianNotes:          r.PhysicianNotes,
		Recommendations:         r.Recommendations,
		NextCheckupDate:         nextCheckup,
		Attachments:             r.Attachments,
	}, nil
}

type Service struct {
	reports Repository
}

func NewService(reports Repository) *Service {
	return &Service{reports: reports}
}

func mapRepoErr(err error) error {
	if errors.Is(err, ErrReportNotFound) {
		return apperror.NotFound("medical report not found")
	}
	return err
}

// Create stores a new report authored by the calling doctor.
func (s *Service) Create(ctx context.Context, caller auth.Identity, req *ReportRequest) (*MedicalReport, error) {
	if caller.Role != auth.RoleDoctor {
		return nil, apperror.Forbidden("only medical staff can create medical reports")
	}
	report, err := req.Validate()
	if err != nil {
		return nil, err
	}
	report.DoctorID = caller.ID
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Update replaces a report's content. Only the authoring doctor may update;
// the athlete linkage is fixed at creation.
func (s *Service) Update(ctx context.Context, caller auth.Identity, id uuid.UUID, req *ReportRequest) (*MedicalReport, error) {
	existing, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if caller.Role != auth.RoleDoctor || existing.DoctorID != caller.ID {
		return nil, apperror.Forbidden("only the authoring doctor can update this report")
	}

	if req.AthleteID == uuid.Nil {
		req.AthleteID = existing.AthleteID
	}
	report, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if report.AthleteID != existing.AthleteID {
		return nil, apperror.Validation("athlete cannot be changed", map[string]string{"athlete_id": "immutable"})
	}

	report.ID = existing.ID
	report.DoctorID = existing.DoctorID
	report.CreatedAt = existing.CreatedAt
	if err := s.reports.Update(ctx, report); err != nil {
		return nil, mapRepoErr(err)
	}
	return report, nil
}

// Delete removes a report. Only the authoring doctor may delete.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	existing, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if caller.Role != auth.RoleDoctor || existing.DoctorID != caller.ID {
		return apperror.Forbidden("only the authoring doctor can delete this report")
	}
	return mapRepoErr(s.reports.Delete(ctx, id))
}

// GetDetail returns the full record for the athlete concerned or the
// authoring doctor.
func (s *Service) GetDetail(ctx context.Context, caller auth.Identity, id uuid.UUID) (*MedicalReport, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	switch caller.Role {
	case auth.RoleAthlete:
		if report.AthleteID == caller.ID {
			return report, nil
		}
	case auth.RoleDoctor:
		if report.DoctorID == caller.ID {
			return report, nil
		}
	}
	return nil, apperror.Forbidden("only the athlete concerned or the authoring doctor may view this report")
}

// ListForAthlete returns paginated summaries for an athlete. Athletes may
// only list their own; medical staff may list any athlete's.
func (s *Service) ListForAthlete(ctx context.Context, caller auth.Identity, athleteID uuid.UUID, limit, offset int) ([]*Summary, int, error) {
	switch caller.Role {
	case auth.RoleAthlete:
		if caller.ID != athleteID {
			return nil, 0, apperror.Forbidden("athletes can only list their own medical reports")
		}
	case auth.RoleDoctor:
	default:
		return nil, 0, apperror.Forbidden("only the athlete concerned or medical staff may list medical reports")
	}
	return s.reports.ListByAthlete(ctx, athleteID, limit, offset)
}

// ListAuthored returns the calling doctor's own reports.
func (s *Service) ListAuthored(ctx context.Context, caller auth.Identity, limit, offset int) ([]*Summary, int, error) {
	if caller.Role != auth.RoleDoctor {
		return nil, 0, apperror.Forbidden("only medical staff have authored reports")
	}
	return s.reports.ListByDoctor(ctx, caller.ID, limit, offset)
}
