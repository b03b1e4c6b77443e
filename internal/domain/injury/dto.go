package injury

import (
	"time"

	"github.com/google/uuid"

	"github.com/athlos/athlos/internal/platform/apperror"
)

const dateLayout = "2006-01-02"

// CreateTicketRequest is the athlete's injury submission. DoctorID is
// optional; when present it must match the athlete's assigned doctor.
type CreateTicketRequest struct {
	DoctorID             *uuid.UUID `json:"doctor_id,omitempty"`
	Title                string     `json:"title"`
	InjuryType           string     `json:"injury_type"`
	BodyPart             string     `json:"body_part"`
	PainLevel            int        `json:"pain_level"`
	DateOfInjury         string     `json:"date_of_injury"`
	ActivityContext      string     `json:"activity_context"`
	Symptoms             []string   `json:"symptoms"`
	AffectingPerformance string     `json:"affecting_performance"`
	PreviouslyInjured    bool       `json:"previously_injured"`
	Notes                string     `json:"notes"`
	Images               []string   `json:"images"`
}

// Validate checks all required report fields and converts the request into an
// InjuryReport. now is the validation clock for the date-of-injury bound.
func (r *CreateTicketRequest) Validate(now time.Time) (*InjuryReport, error) {
	fields := map[string]string{}

	if r.Title == "" {
		fields["title"] = "required"
	}
	if r.BodyPart == "" {
		fields["body_part"] = "required"
	}
	if r.ActivityContext == "" {
		fields["activity_context"] = "required"
	}
	if r.PainLevel < 1 || r.PainLevel > 10 {
		fields["pain_level"] = "must be between 1 and 10"
	}

	injuryType := InjuryType(r.InjuryType)
	if r.InjuryType == "" {
		fields["injury_type"] = "required"
	} else if !injuryType.Valid() {
		fields["injury_type"] = "unknown injury type"
	}

	impact := PerformanceImpact(r.AffectingPerformance)
	if r.AffectingPerformance == "" {
		impact = ImpactNone
	} else if !impact.Valid() {
		fields["affecting_performance"] = "unknown performance impact"
	}

	var dateOfInjury time.Time
	if r.DateOfInjury == "" {
		fields["date_of_injury"] = "required"
	} else {
		var err error
		dateOfInjury, err = time.Parse(dateLayout, r.DateOfInjury)
		if err != nil {
			fields["date_of_injury"] = "must be a date in YYYY-MM-DD format"
		} else if dateOfInjury.After(now) {
			fields["date_of_injury"] = "cannot be in the future"
		}
	}

	if len(fields) > 0 {
		return nil, apperror.Validation("invalid injury report", fields)
	}

	return &InjuryReport{
		Title:                r.Title,
		InjuryType:           injuryType,
		BodyPart:             r.BodyPart,
		PainLevel:            r.PainLevel,
		DateOfInjury:         dateOfInjury,
		ActivityContext:      r.ActivityContext,
		Symptoms:             r.Symptoms,
		AffectingPerformance: impact,
		PreviouslyInjured:    r.PreviouslyInjured,
		Notes:                r.Notes,
		Images:               r.Images,
	}, nil
}

// UpdateReportRequest is a partial report edit. Nil fields are left untouched.
type UpdateReportRequest struct {
	Title                *string   `json:"title,omitempty"`
	InjuryType           *string   `json:"injury_type,omitempty"`
	BodyPart             *string   `json:"body_part,omitempty"`
	PainLevel            *int      `json:"pain_level,omitempty"`
	DateOfInjury         *string   `json:"date_of_injury,omitempty"`
	ActivityContext      *string   `json:"activity_context,omitempty"`
	Symptoms             *[]string `json:"symptoms,omitempty"`
	AffectingPerformance *string   `json:"affecting_performance,omitempty"`
	PreviouslyInjured    *bool     `json:"previously_injured,omitempty"`
	Notes                *string   `json:"notes,omitempty"`
	Images               *[]string `json:"images,omitempty"`
}

// Apply validates the provided fields and merges them into the report. The
// report is unchanged when validation fails.
func (r *UpdateReportRequest) Apply(report *InjuryReport, now time.Time) error {
	fields := map[string]string{}

	if r.Title != nil && *r.Title == "" {
		fields["title"] = "cannot be empty"
	}
	if r.BodyPart != nil && *r.BodyPart == "" {
		fields["body_part"] = "cannot be empty"
	}
	if r.ActivityContext != nil && *r.ActivityContext == "" {
		fields["activity_context"] = "cannot be empty"
	}
	if r.PainLevel != nil && (*r.PainLevel < 1 || *r.PainLevel > 10) {
		fields["pain_level"] = "must be between 1 and 10"
	}
	if r.InjuryType != nil && !InjuryType(*r.InjuryType).Valid() {
		fields["injury_type"] = "unknown injury type"
	}
	if r.AffectingPerformance != nil && !PerformanceImpact(*r.AffectingPerformance).Valid() {
		fields["affecting_performance"] = "unknown performance impact"
	}

	var dateOfInjury time.Time
	if r.DateOfInjury != nil {
		var err error
		dateOfInjury, err = time.Parse(dateLayout, *r.DateOfInjury)
		if err != nil {
			fields["date_of_injury"] = "must be a date in YYYY-MM-DD format"
		} else if dateOfInjury.After(now) {
			fields["date_of_injury"] = "cannot be in the future"
		}
	}

	if len(fields) > 0 {
		return apperror.Validation("invalid report update", fields)
	}

	if r.Title != nil {
		report.Title = *r.Title
	}
	if r.InjuryType != nil {
		report.InjuryType = InjuryType(*r.InjuryType)
	}
	if r.BodyPart != nil {
		report.BodyPart = *r.BodyPart
	}
	if r.PainLevel != nil {
		report.PainLevel = *r.PainLevel
	}
	if r.DateOfInjury != nil {
		report.DateOfInjury = dateOfInjury
	}
	if r.ActivityContext != nil {
		report.ActivityContext = *r.ActivityContext
	}
	if r.Symptoms != nil {
		report.Symptoms = *r.Symptoms
	}
	if r.AffectingPerformance != nil {
		report.AffectingPerformance = PerformanceImpact(*r.AffectingPerformance)
	}
	if r.PreviouslyInjured != nil {
		report.PreviouslyInjured = *r.PreviouslyInjured
	}
	if r.Notes != nil {
		report.Notes = *r.Notes
	}
	if r.Images != nil {
		report.Images = *r.Images
	}
	return nil
}

// PostMessageRequest is a doctor's interim reply on a ticket.
type PostMessageRequest struct {
	Response        string `json:"response"`
	Medication      string `json:"medication"`
	DoctorNote      string `json:"doctor_note"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

// Validate converts the request into a Message.
func (r *PostMessageRequest) Validate() (*Message, error) {
	fields := map[string]string{}

	if r.Response == "" {
		fields["response"] = "required"
	}

	var appointmentDate *time.Time
	if r.AppointmentDate != "" {
		d, err := time.Parse(dateLayout, r.AppointmentDate)
		if err != nil {
			fields["appointment_date"] = "must be a date in YYYY-MM-DD format"
		} else {
			appointmentDate = &d
		}
	}

	if len(fields) > 0 {
		return nil, apperror.Validation("invalid message", fields)
	}

	return &Message{
		Response:        r.Response,
		Medication:      r.Medication,
		DoctorNote:      r.DoctorNote,
		AppointmentDate: appointmentDate,
		AppointmentTime: r.AppointmentTime,
	}, nil
}

// SubmitAssessmentRequest is the doctor's formal diagnosis submission.
type SubmitAssessmentRequest struct {
	Diagnosis              string           `json:"diagnosis"`
	DiagnosisDetails       string           `json:"diagnosis_details"`
	Severity               string           `json:"severity"`
	TreatmentPlan          string           `json:"treatment_plan"`
	RehabilitationProtocol string           `json:"rehabilitation_protocol"`
	EstimatedRecoveryTime  RecoveryEstimate `json:"estimated_recovery_time"`
	ClearanceStatus        string           `json:"clearance_status"`
	Restrictions           []string         `json:"restrictions"`
}

// Validate converts the request into an Assessment.
func (r *SubmitAssessmentRequest) Validate() (*Assessment, error) {
	fields := map[string]string{}

	if r.Diagnosis == "" {
		fields["diagnosis"] = "required"
	}
	if r.Severity == "" {
		fields["severity"] = "required"
	}
	if r.TreatmentPlan == "" {
		fields["treatment_plan"] = "required"
	}

	clearance := ClearanceStatus(r.ClearanceStatus)
	if r.ClearanceStatus == "" {
		fields["clearance_status"] = "required"
	} else if !clearance.Valid() {
		fields["clearance_status"] = "unknown clearance status"
	}

	if r.EstimatedRecoveryTime.Value < 0 {
		fields["estimated_recovery_time.value"] = "cannot be negative"
	}

	if len(fields) > 0 {
		return nil, apperror.Validation("invalid assessment", fields)
	}

	return &Assessment{
		Diagnosis:              r.Diagnosis,
		DiagnosisDetails:       r.DiagnosisDetails,
		Severity:               r.Severity,
		TreatmentPlan:          r.TreatmentPlan,
		RehabilitationProtocol: r.RehabilitationProtocol,
		RecoveryValue:          r.EstimatedRecoveryTime.Value,
		RecoveryUnit:           r.EstimatedRecoveryTime.Unit,
		ClearanceStatus:        clearance,
		Restrictions:           r.Restrictions,
	}, nil
}
