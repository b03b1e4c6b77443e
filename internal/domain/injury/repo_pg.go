package injury

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/athlos/athlos/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// ---------------------------------------------------------------------------
// Tickets
// ---------------------------------------------------------------------------

type ticketRepoPG struct{ pool *pgxpool.Pool }

func NewTicketRepoPG(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepoPG{pool: pool}
}

func (r *ticketRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ticketCols = `id, report_id, athlete_id, doctor_id, status, created_at, updated_at`

const reportCols = `id, title, injury_type, body_part, pain_level, date_of_injury,
	activity_context, symptoms, affecting_performance, previously_injured,
	notes, images, created_at, updated_at`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.ReportID, &t.AthleteID, &t.DoctorID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanReport(row pgx.Row) (*InjuryReport, error) {
	var rep InjuryReport
	err := row.Scan(&rep.ID, &rep.Title, &rep.InjuryType, &rep.BodyPart, &rep.PainLevel,
		&rep.DateOfInjury, &rep.ActivityContext, &rep.Symptoms, &rep.AffectingPerformance,
		&rep.PreviouslyInjured, &rep.Notes, &rep.Images, &rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ticketRepoPG) CreateWithReport(ctx context.Context, t *Ticket, rep *InjuryReport) error {
	rep.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO injury_report (id, title, injury_type, body_part, pain_level,
			date_of_injury, activity_context, symptoms, affecting_performance,
			previously_injured, notes, images)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rep.ID, rep.Title, rep.InjuryType, rep.BodyPart, rep.PainLevel,
		rep.DateOfInjury, rep.ActivityContext, rep.Symptoms, rep.AffectingPerformance,
		rep.PreviouslyInjured, rep.Notes, rep.Images)
	if err != nil {
		return err
	}

	t.ID = uuid.New()
	t.ReportID = rep.ID
	t.Status = StatusOpen
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO injury_ticket (id, report_id, athlete_id, doctor_id, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		t.ID, t.ReportID, t.AthleteID, t.DoctorID, t.Status).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}

	return r.AppendEvent(ctx, &StatusEvent{TicketID: t.ID, Status: StatusOpen})
}

func (r *ticketRepoPG) GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	return scanTicket(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ticketCols+` FROM injury_ticket WHERE id = $1`, id))
}

func (r *ticketRepoPG) GetTicketForUpdate(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	return scanTicket(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ticketCols+` FROM injury_ticket WHERE id = $1 FOR UPDATE`, id))
}

func (r *ticketRepoPG) GetTicketByReport(ctx context.Context, reportID uuid.UUID) (*Ticket, error) {
	return scanTicket(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ticketCols+` FROM injury_ticket WHERE report_id = $1`, reportID))
}

func (r *ticketRepoPG) GetReport(ctx context.Context, id uuid.UUID) (*InjuryReport, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM injury_report WHERE id = $1`, id))
}

func (r *ticketRepoPG) UpdateReport(ctx context.Context, rep *InjuryReport) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE injury_report SET title=$2, injury_type=$3, body_part=$4, pain_level=$5,
			date_of_injury=$6, activity_context=$7, symptoms=$8,
			affecting_performance=$9, previously_injured=$10, notes=$11, images=$12,
			updated_at=NOW()
		WHERE id = $1`,
		rep.ID, rep.Title, rep.InjuryType, rep.BodyPart, rep.PainLevel,
		rep.DateOfInjury, rep.ActivityContext, rep.Symptoms, rep.AffectingPerformance,
		rep.PreviouslyInjured, rep.Notes, rep.Images)
	return err
}

func (r *ticketRepoPG) AdvanceStatus(ctx context.Context, ticketID uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE injury_ticket SET status=$3, updated_at=NOW()
		WHERE id = $1 AND status = $2`, ticketID, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ticketRepoPG) DeleteIfOpen(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	var reportID uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `
		DELETE FROM injury_ticket WHERE id = $1 AND status = $2
		RETURNING report_id`, ticketID, StatusOpen).Scan(&reportID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// Timeline rows cascade with the ticket; the report is owned exclusively
	// and goes with it.
	_, err = r.conn(ctx).Exec(ctx, `DELETE FROM injury_report WHERE id = $1`, reportID)
	return err == nil, err
}

func (r *ticketRepoPG) AppendEvent(ctx context.Context, ev *StatusEvent) error {
	ev.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO injury_ticket_event (id, ticket_id, status)
		VALUES ($1,$2,$3)
		RETURNING created_at`, ev.ID, ev.TicketID, ev.Status).Scan(&ev.CreatedAt)
}

func (r *ticketRepoPG) ListEvents(ctx context.Context, ticketID uuid.UUID) ([]*StatusEvent, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, ticket_id, status, created_at FROM injury_ticket_event
		WHERE ticket_id = $1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*StatusEvent
	for rows.Next() {
		var ev StatusEvent
		if err := rows.Scan(&ev.ID, &ev.TicketID, &ev.Status, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *ticketRepoPG) ListByAthlete(ctx context.Context, athleteID uuid.UUID) ([]*Ticket, map[uuid.UUID]*InjuryReport, error) {
	return r.listBy(ctx, "athlete_id", athleteID)
}

func (r *ticketRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Ticket, map[uuid.UUID]*InjuryReport, error) {
	return r.listBy(ctx, "doctor_id", doctorID)
}

func (r *ticketRepoPG) listBy(ctx context.Context, column string, id uuid.UUID) ([]*Ticket, map[uuid.UUID]*InjuryReport, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT t.id, t.report_id, t.athlete_id, t.doctor_id, t.status, t.created_at, t.updated_at,
			r.id, r.title, r.injury_type, r.body_part, r.pain_level, r.date_of_injury,
			r.activity_context, r.symptoms, r.affecting_performance, r.previously_injured,
			r.notes, r.images, r.created_at, r.updated_at
		FROM injury_ticket t
		JOIN injury_report r ON r.id = t.report_id
		WHERE t.`+column+` = $1
		ORDER BY t.created_at DESC`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var tickets []*Ticket
	reports := make(map[uuid.UUID]*InjuryReport)
	for rows.Next() {
		var t Ticket
		var rep InjuryReport
		err := rows.Scan(&t.ID, &t.ReportID, &t.AthleteID, &t.DoctorID, &t.Status, &t.CreatedAt, &t.UpdatedAt,
			&rep.ID, &rep.Title, &rep.InjuryType, &rep.BodyPart, &rep.PainLevel, &rep.DateOfInjury,
			&rep.ActivityContext, &rep.Symptoms, &rep.AffectingPerformance, &rep.PreviouslyInjured,
			&rep.Notes, &rep.Images, &rep.CreatedAt, &rep.UpdatedAt)
		if err != nil {
			return nil, nil, err
		}
		tickets = append(tickets, &t)
		reports[t.ID] = &rep
	}
	return tickets, reports, rows.Err()
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const messageCols = `id, ticket_id, doctor_id, response, medication, doctor_note,
	appointment_date, appointment_time, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.TicketID, &m.DoctorID, &m.Response, &m.Medication,
		&m.DoctorNote, &m.AppointmentDate, &m.AppointmentTime, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepoPG) Insert(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO injury_message (id, ticket_id, doctor_id, response, medication,
			doctor_note, appointment_date, appointment_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		m.ID, m.TicketID, m.DoctorID, m.Response, m.Medication,
		m.DoctorNote, m.AppointmentDate, m.AppointmentTime).Scan(&m.CreatedAt)
}

func (r *messageRepoPG) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+messageCols+` FROM injury_message
		WHERE ticket_id = $1 ORDER BY created_at DESC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepoPG) LatestByTicket(ctx context.Context, ticketID uuid.UUID) (*Message, error) {
	m, err := scanMessage(r.conn(ctx).QueryRow(ctx, `
		SELECT `+messageCols+` FROM injury_message
		WHERE ticket_id = $1 ORDER BY created_at DESC LIMIT 1`, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ---------------------------------------------------------------------------
// Assessments
// ---------------------------------------------------------------------------

type assessmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{pool: pool}
}

func (r *assessmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const assessmentCols = `id, ticket_id, doctor_id, diagnosis, diagnosis_details, severity,
	treatment_plan, rehabilitation_protocol, recovery_value, recovery_unit,
	clearance_status, restrictions, created_at`

func (r *assessmentRepoPG) Insert(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO injury_assessment (id, ticket_id, doctor_id, diagnosis,
			diagnosis_details, severity, treatment_plan, rehabilitation_protocol,
			recovery_value, recovery_unit, clearance_status, restrictions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at`,
		a.ID, a.TicketID, a.DoctorID, a.Diagnosis,
		a.DiagnosisDetails, a.Severity, a.TreatmentPlan, a.RehabilitationProtocol,
		a.RecoveryValue, a.RecoveryUnit, a.ClearanceStatus, a.Restrictions).Scan(&a.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAssessmentExists
	}
	return err
}

func (r *assessmentRepoPG) GetByTicket(ctx context.Context, ticketID uuid.UUID) (*Assessment, error) {
	var a Assessment
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT `+assessmentCols+` FROM injury_assessment WHERE ticket_id = $1`, ticketID).
		Scan(&a.ID, &a.TicketID, &a.DoctorID, &a.Diagnosis, &a.DiagnosisDetails,
			&a.Severity, &a.TreatmentPlan, &a.RehabilitationProtocol,
			&a.RecoveryValue, &a.RecoveryUnit, &a.ClearanceStatus, &a.Restrictions, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
