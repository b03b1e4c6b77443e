// Package injury implements the injury ticket workflow: an athlete reports an
// injury, the assigned doctor replies and eventually issues a formal
// assessment, and the record becomes immutable history.
package injury

import (
	"time"

	"github.com/google/uuid"
)

// Status is the ticket lifecycle state. It only ever moves forward along
// OPEN -> IN_PROGRESS -> CLOSED.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusClosed     Status = "CLOSED"
)

// transitions is the complete transition table. OPEN advances on the first
// doctor message, IN_PROGRESS advances on assessment submission. There is no
// standalone status write anywhere else.
var transitions = map[Status]Status{
	StatusOpen:       StatusInProgress,
	StatusInProgress: StatusClosed,
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is the legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	return transitions[s] == next
}

// Terminal reports whether the ticket can no longer change.
func (s Status) Terminal() bool { return s == StatusClosed }

// InjuryType categorizes the reported injury.
type InjuryType string

const (
	InjurySprain       InjuryType = "Sprain"
	InjuryStrain       InjuryType = "Strain"
	InjuryFracture     InjuryType = "Fracture"
	InjuryDislocation  InjuryType = "Dislocation"
	InjuryContusion    InjuryType = "Contusion"
	InjuryLaceration   InjuryType = "Laceration"
	InjuryInflammation InjuryType = "Inflammation"
	InjuryOther        InjuryType = "Other"
)

func (t InjuryType) Valid() bool {
	switch t {
	case InjurySprain, InjuryStrain, InjuryFracture, InjuryDislocation,
		InjuryContusion, InjuryLaceration, InjuryInflammation, InjuryOther:
		return true
	}
	return false
}

// PerformanceImpact grades how the injury affects the athlete's ability to
// play.
type PerformanceImpact string

const (
	ImpactCannotPlay PerformanceImpact = "CANNOT_PLAY"
	ImpactLimited    PerformanceImpact = "LIMITED"
	ImpactMinimal    PerformanceImpact = "MINIMAL"
	ImpactNone       PerformanceImpact = "NONE"
)

func (p PerformanceImpact) Valid() bool {
	switch p {
	case ImpactCannotPlay, ImpactLimited, ImpactMinimal, ImpactNone:
		return true
	}
	return false
}

// ClearanceStatus is the doctor's return-to-play verdict in an assessment.
type ClearanceStatus string

const (
	ClearanceFull    ClearanceStatus = "FULL_CLEARANCE"
	ClearancePartial ClearanceStatus = "PARTIAL_CLEARANCE"
	ClearanceNone    ClearanceStatus = "NOT_CLEARED"
)

func (c ClearanceStatus) Valid() bool {
	switch c {
	case ClearanceFull, ClearancePartial, ClearanceNone:
		return true
	}
	return false
}

// InjuryReport is the structured injury description submitted by the athlete.
// Mutable only while the owning ticket is OPEN.
type InjuryReport struct {
	ID                   uuid.UUID         `db:"id" json:"id"`
	Title                string            `db:"title" json:"title"`
	InjuryType           InjuryType        `db:"injury_type" json:"injury_type"`
	BodyPart             string            `db:"body_part" json:"body_part"`
	PainLevel            int               `db:"pain_level" json:"pain_level"`
	DateOfInjury         time.Time         `db:"date_of_injury" json:"date_of_injury"`
	ActivityContext      string            `db:"activity_context" json:"activity_context"`
	Symptoms             []string          `db:"symptoms" json:"symptoms"`
	AffectingPerformance PerformanceImpact `db:"affecting_performance" json:"affecting_performance"`
	PreviouslyInjured    bool              `db:"previously_injured" json:"previously_injured"`
	Notes                string            `db:"notes" json:"notes"`
	Images               []string          `db:"images" json:"images"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

// Ticket is the tracked unit of an injury report's lifecycle. It owns exactly
// one InjuryReport.
type Ticket struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ReportID  uuid.UUID `db:"report_id" json:"report_id"`
	AthleteID uuid.UUID `db:"athlete_id" json:"athlete_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StatusEvent is one entry of a ticket's status timeline.
type StatusEvent struct {
	ID        uuid.UUID `db:"id" json:"-"`
	TicketID  uuid.UUID `db:"ticket_id" json:"-"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// Message is an interim doctor communication on a ticket, prior to the formal
// assessment. Append-only.
type Message struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	TicketID        uuid.UUID  `db:"ticket_id" json:"ticket_id"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Response        string     `db:"response" json:"response"`
	Medication      string     `db:"medication" json:"medication,omitempty"`
	DoctorNote      string     `db:"doctor_note" json:"doctor_note,omitempty"`
	AppointmentDate *time.Time `db:"appointment_date" json:"appointment_date,omitempty"`
	AppointmentTime string     `db:"appointment_time" json:"appointment_time,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// RecoveryEstimate is the doctor's estimated recovery time.
type RecoveryEstimate struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Assessment is the terminal, write-once diagnosis that closes a ticket.
type Assessment struct {
	ID                     uuid.UUID       `db:"id" json:"id"`
	TicketID               uuid.UUID       `db:"ticket_id" json:"ticket_id"`
	DoctorID               uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	Diagnosis              string          `db:"diagnosis" json:"diagnosis"`
	DiagnosisDetails       string          `db:"diagnosis_details" json:"diagnosis_details,omitempty"`
	Severity               string          `db:"severity" json:"severity"`
	TreatmentPlan          string          `db:"treatment_plan" json:"treatment_plan"`
	RehabilitationProtocol string          `db:"rehabilitation_protocol" json:"rehabilitation_protocol,omitempty"`
	RecoveryValue          int             `db:"recovery_value" json:"-"`
	RecoveryUnit           string          `db:"recovery_unit" json:"-"`
	ClearanceStatus        ClearanceStatus `db:"clearance_status" json:"clearance_status"`
	Restrictions           []string        `db:"restrictions" json:"restrictions"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
}

// EstimatedRecoveryTime bundles the recovery value and unit for serialization.
func (a *Assessment) EstimatedRecoveryTime() RecoveryEstimate {
	return RecoveryEstimate{Value: a.RecoveryValue, Unit: a.RecoveryUnit}
}

// TicketDetail is the composed read model for a single ticket view.
type TicketDetail struct {
	Ticket        *Ticket           `json:"ticket"`
	Report        *InjuryReport     `json:"report"`
	Timeline      []*StatusEvent    `json:"timeline"`
	LatestMessage *Message          `json:"latest_message,omitempty"`
	Assessment    *AssessmentView   `json:"assessment,omitempty"`
}

// AssessmentView is the JSON shape of an assessment, with the recovery
// estimate nested.
type AssessmentView struct {
	*Assessment
	EstimatedRecoveryTime RecoveryEstimate `json:"estimated_recovery_time"`
}

// NewAssessmentView wraps an assessment for serialization. Returns nil for a
// nil assessment.
func NewAssessmentView(a *Assessment) *AssessmentView {
	if a == nil {
		return nil
	}
	return &AssessmentView{Assessment: a, EstimatedRecoveryTime: a.EstimatedRecoveryTime()}
}

// BucketEntry is one ticket in a dashboard bucket: the ticket, its report,
// and, depending on status, a condensed latest message and the assessment.
type BucketEntry struct {
	Ticket        *Ticket         `json:"ticket"`
	Report        *InjuryReport   `json:"report"`
	LatestMessage *Message        `json:"latest_message,omitempty"`
	Assessment    *AssessmentView `json:"assessment,omitempty"`
}

// Buckets groups tickets by status for dashboard list views. All three lists
// are always present, possibly empty.
type Buckets struct {
	Open       []*BucketEntry `json:"open"`
	InProgress []*BucketEntry `json:"in_progress"`
	Closed     []*BucketEntry `json:"closed"`
}
