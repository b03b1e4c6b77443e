package injury

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
	"github.com/athlos/athlos/internal/platform/staffdir"
)

// TxRunner executes fn inside a storage transaction. Status-conditioned
// writes run under one so the status check and the write cannot be split
// across round trips.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn without a transaction. Used with in-memory
// repositories in tests.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	tickets     TicketRepository
	messages    MessageRepository
	assessments AssessmentRepository
	staff       staffdir.Directory
	tx          TxRunner
	now         func() time.Time
}

func NewService(tickets TicketRepository, messages MessageRepository, assessments AssessmentRepository, staff staffdir.Directory, tx TxRunner) *Service {
	if tx == nil {
		tx = PassthroughTx
	}
	return &Service{
		tickets:     tickets,
		messages:    messages,
		assessments: assessments,
		staff:       staff,
		tx:          tx,
		now:         time.Now,
	}
}

// authorize enforces the owner/assignee policy: the reporting athlete and the
// assigned doctor are the only parties with access to a ticket. Violations
// are Forbidden, not NotFound.
func authorize(t *Ticket, caller auth.Identity) error {
	switch caller.Role {
	case auth.RoleAthlete:
		if t.AthleteID == caller.ID {
			return nil
		}
	case auth.RoleDoctor:
		if t.DoctorID == caller.ID {
			return nil
		}
	}
	return apperror.Forbidden("only the reporting athlete or assigned doctor may access this ticket")
}

func mapTicketErr(err error) error {
	if errors.Is(err, ErrTicketNotFound) {
		return apperror.NotFound("ticket not found")
	}
	return err
}

// CreateTicket validates the report, checks the doctor assignment, and
// persists report + ticket atomically in OPEN.
func (s *Service) CreateTicket(ctx context.Context, caller auth.Identity, req *CreateTicketRequest) (*TicketDetail, error) {
	report, err := req.Validate(s.now())
	if err != nil {
		return nil, err
	}

	assigned, err := s.staff.AssignedDoctor(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, staffdir.ErrNoAssignment) {
			return nil, apperror.Forbidden("athlete has no assigned doctor")
		}
		return nil, err
	}
	if req.DoctorID != nil && *req.DoctorID != assigned {
		return nil, apperror.Forbidden("doctor is not the athlete's assigned medical staff")
	}

	ticket := &Ticket{AthleteID: caller.ID, DoctorID: assigned}
	err = s.tx(ctx, func(ctx context.Context) error {
		return s.tickets.CreateWithReport(ctx, ticket, report)
	})
	if err != nil {
		return nil, err
	}

	events, err := s.tickets.ListEvents(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: ticket, Report: report, Timeline: events}, nil
}

// GetTicket returns the composed ticket view: report, timeline, latest
// message, and assessment when present.
func (s *Service) GetTicket(ctx context.Context, caller auth.Identity, ticketID uuid.UUID) (*TicketDetail, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}
	if err := authorize(ticket, caller); err != nil {
		return nil, err
	}

	report, err := s.tickets.GetReport(ctx, ticket.ReportID)
	if err != nil {
		return nil, err
	}
	events, err := s.tickets.ListEvents(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	latest, err := s.messages.LatestByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	detail := &TicketDetail{
		Ticket:        ticket,
		Report:        report,
		Timeline:      events,
		LatestMessage: latest,
	}

	assessment, err := s.assessments.GetByTicket(ctx, ticketID)
	if err != nil && !errors.Is(err, ErrAssessmentNotFound) {
		return nil, err
	}
	detail.Assessment = NewAssessmentView(assessment)

	return detail, nil
}

// UpdateReport merges the provided fields into the report. Permitted only to
// the owning athlete while the ticket is still OPEN; the status check holds a
// row lock so a concurrent doctor write cannot slip in between.
func (s *Service) UpdateReport(ctx context.Context, caller auth.Identity, reportID uuid.UUID, req *UpdateReportRequest) (*InjuryReport, error) {
	var report *InjuryReport
	err := s.tx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetTicketByReport(ctx, reportID)
		if err != nil {
			if errors.Is(err, ErrTicketNotFound) {
				return apperror.NotFound("report not found")
			}
			return err
		}
		ticket, err = s.tickets.GetTicketForUpdate(ctx, ticket.ID)
		if err != nil {
			return mapTicketErr(err)
		}
		if caller.Role != auth.RoleAthlete || ticket.AthleteID != caller.ID {
			return apperror.Forbidden("only the reporting athlete can edit the report")
		}
		if ticket.Status != StatusOpen {
			return apperror.Forbidden("only open tickets can be edited")
		}

		report, err = s.tickets.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if err := req.Apply(report, s.now()); err != nil {
			return err
		}
		return s.tickets.UpdateReport(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// DeleteTicket removes an OPEN ticket together with its report. The delete is
// status-conditioned; losing the race against a doctor's first message is a
// Conflict.
func (s *Service) DeleteTicket(ctx context.Context, caller auth.Identity, ticketID uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return mapTicketErr(err)
		}
		if caller.Role != auth.RoleAthlete || ticket.AthleteID != caller.ID {
			return apperror.Forbidden("only the reporting athlete can delete the ticket")
		}
		if ticket.Status != StatusOpen {
			return apperror.Forbidden("only open tickets can be deleted")
		}

		ok, err := s.tickets.DeleteIfOpen(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict("ticket is no longer open")
		}
		return nil
	})
}

// PostMessage appends a doctor reply. The first message on a ticket advances
// it OPEN -> IN_PROGRESS in the same transaction as the insert.
func (s *Service) PostMessage(ctx context.Context, caller auth.Identity, ticketID uuid.UUID, req *PostMessageRequest) (*Message, error) {
	message, err := req.Validate()
	if err != nil {
		return nil, err
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return mapTicketErr(err)
		}
		if caller.Role != auth.RoleDoctor || ticket.DoctorID != caller.ID {
			return apperror.Forbidden("only the assigned doctor can reply to this ticket")
		}
		if ticket.Status == StatusClosed {
			return apperror.Conflict("ticket is closed")
		}

		message.TicketID = ticket.ID
		message.DoctorID = caller.ID
		if err := s.messages.Insert(ctx, message); err != nil {
			return err
		}

		if ticket.Status == StatusOpen {
			ok, err := s.tickets.AdvanceStatus(ctx, ticket.ID, StatusOpen, StatusInProgress)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Conflict("ticket status changed concurrently")
			}
			return s.tickets.AppendEvent(ctx, &StatusEvent{TicketID: ticket.ID, Status: StatusInProgress})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// ListMessages returns the reply thread newest first.
func (s *Service) ListMessages(ctx context.Context, caller auth.Identity, ticketID uuid.UUID) ([]*Message, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}
	if err := authorize(ticket, caller); err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

// SubmitAssessment writes the one-per-ticket diagnosis and closes the ticket.
// A ticket that has never had a doctor reply cannot be closed; the caller
// must post a message first.
func (s *Service) SubmitAssessment(ctx context.Context, caller auth.Identity, ticketID uuid.UUID, req *SubmitAssessmentRequest) (*AssessmentView, error) {
	assessment, err := req.Validate()
	if err != nil {
		return nil, err
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return mapTicketErr(err)
		}
		if caller.Role != auth.RoleDoctor || ticket.DoctorID != caller.ID {
			return apperror.Forbidden("only the assigned doctor can assess this ticket")
		}
		switch ticket.Status {
		case StatusClosed:
			return apperror.Conflict("ticket is already closed")
		case StatusOpen:
			return apperror.Conflict("ticket has no doctor response yet")
		}

		assessment.TicketID = ticket.ID
		assessment.DoctorID = caller.ID
		if err := s.assessments.Insert(ctx, assessment); err != nil {
			if errors.Is(err, ErrAssessmentExists) {
				return apperror.Conflict("assessment already exists for this ticket")
			}
			return err
		}

		ok, err := s.tickets.AdvanceStatus(ctx, ticket.ID, StatusInProgress, StatusClosed)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Conflict("ticket status changed concurrently")
		}
		return s.tickets.AppendEvent(ctx, &StatusEvent{TicketID: ticket.ID, Status: StatusClosed})
	})
	if err != nil {
		return nil, err
	}
	return NewAssessmentView(assessment), nil
}

// GetAssessment returns the assessment, or NotFound while it is pending.
func (s *Service) GetAssessment(ctx context.Context, caller auth.Identity, ticketID uuid.UUID) (*AssessmentView, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err)
	}
	if err := authorize(ticket, caller); err != nil {
		return nil, err
	}

	assessment, err := s.assessments.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrAssessmentNotFound) {
			return nil, apperror.NotFound("no assessment has been submitted yet")
		}
		return nil, err
	}
	return NewAssessmentView(assessment), nil
}

// ListForAthlete returns the athlete's tickets bucketed by status.
func (s *Service) ListForAthlete(ctx context.Context, athleteID uuid.UUID) (*Buckets, error) {
	tickets, reports, err := s.tickets.ListByAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	return s.buckets(ctx, tickets, reports)
}

// ListForDoctor mirrors ListForAthlete for the assigned doctor.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) (*Buckets, error) {
	tickets, reports, err := s.tickets.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.buckets(ctx, tickets, reports)
}

// buckets groups tickets by status. In-progress and closed entries carry a
// condensed latest message; closed entries additionally carry the assessment.
func (s *Service) buckets(ctx context.Context, tickets []*Ticket, reports map[uuid.UUID]*InjuryReport) (*Buckets, error) {
	b := &Buckets{
		Open:       []*BucketEntry{},
		InProgress: []*BucketEntry{},
		Closed:     []*BucketEntry{},
	}

	for _, t := range tickets {
		entry := &BucketEntry{Ticket: t, Report: reports[t.ID]}

		switch t.Status {
		case StatusOpen:
			b.Open = append(b.Open, entry)
		case StatusInProgress:
			latest, err := s.messages.LatestByTicket(ctx, t.ID)
			if err != nil {
				return nil, err
			}
			entry.LatestMessage = latest
			b.InProgress = append(b.InProgress, entry)
		case StatusClosed:
			latest, err := s.messages.LatestByTicket(ctx, t.ID)
			if err != nil {
				return nil, err
			}
			entry.LatestMessage = latest

			assessment, err := s.assessments.GetByTicket(ctx, t.ID)
			if err != nil && !errors.Is(err, ErrAssessmentNotFound) {
				return nil, err
			}
			entry.Assessment = NewAssessmentView(assessment)
			b.Closed = append(b.Closed, entry)
		}
	}
	return b, nil
}
