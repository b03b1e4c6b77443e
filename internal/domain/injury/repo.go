package injury

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Repository-level sentinel errors. The service maps them onto the apperror
// taxonomy.
var (
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAssessmentExists   = errors.New("assessment already exists")
)

// TicketRepository persists tickets, their reports, and the status timeline.
type TicketRepository interface {
	// CreateWithReport inserts the report and its owning ticket together with
	// the initial OPEN timeline event.
	CreateWithReport(ctx context.Context, t *Ticket, r *InjuryReport) error
	GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error)
	// GetTicketForUpdate loads the ticket with a row lock so that
	// status-conditioned writes in the same transaction cannot race.
	GetTicketForUpdate(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetTicketByReport(ctx context.Context, reportID uuid.UUID) (*Ticket, error)
	GetReport(ctx context.Context, id uuid.UUID) (*InjuryReport, error)
	UpdateReport(ctx context.Context, r *InjuryReport) error
	// AdvanceStatus moves the ticket from to its successor status as a
	// compare-and-swap on the current status. Returns false when the ticket
	// is no longer in from.
	AdvanceStatus(ctx context.Context, ticketID uuid.UUID, from, to Status) (bool, error)
	// DeleteIfOpen removes the ticket, its report, and its timeline, but only
	// while the ticket is still OPEN. Returns false when the status check
	// fails.
	DeleteIfOpen(ctx context.Context, ticketID uuid.UUID) (bool, error)
	AppendEvent(ctx context.Context, ev *StatusEvent) error
	ListEvents(ctx context.Context, ticketID uuid.UUID) ([]*StatusEvent, error)
	// ListByAthlete and ListByDoctor return tickets with their reports,
	// newest first.
	ListByAthlete(ctx context.Context, athleteID uuid.UUID) ([]*Ticket, map[uuid.UUID]*InjuryReport, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Ticket, map[uuid.UUID]*InjuryReport, error)
}

// MessageRepository persists the append-only doctor reply thread.
type MessageRepository interface {
	Insert(ctx context.Context, m *Message) error
	// ListByTicket returns messages newest first.
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*Message, error)
	// LatestByTicket returns the most recent message, or nil when the thread
	// is empty.
	LatestByTicket(ctx context.Context, ticketID uuid.UUID) (*Message, error)
}

// AssessmentRepository persists the write-once assessment.
type AssessmentRepository interface {
	// Insert fails with ErrAssessmentExists when the ticket already has one.
	Insert(ctx context.Context, a *Assessment) error
	// GetByTicket returns ErrAssessmentNotFound while the assessment is
	// pending.
	GetByTicket(ctx context.Context, ticketID uuid.UUID) (*Assessment, error)
}
