package medrecord

import (
	"context"
	"encoding/json"
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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reportCols = `id, athlete_id, doctor_id, report_date, test_name, vitals,
	medical_status, medical_clearance, chronic_medical_condition,
	prescribed_medications, test_results, physician_notes, recommendations,
	next_checkup_date, attachments, created_at, updated_at`

func (r *repoPG) scanReport(row pgx.Row) (*MedicalReport, error) {
	var rep MedicalReport
	var vitals, medications, attachments []byte
	err := row.Scan(&rep.ID, &rep.AthleteID, &rep.DoctorID, &rep.ReportDate, &rep.TestName,
		&vitals, &rep.MedicalStatus, &rep.MedicalClearance, &rep.ChronicMedicalCondition,
		&medications, &rep.TestResults, &rep.PhysicianNotes, &rep.Recommendations,
		&rep.NextCheckupDate, &attachments, &rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(vitals, &rep.Vitals); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(medications, &rep.PrescribedMedications); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attachments, &rep.Attachments); err != nil {
		return nil, err
	}
	return &rep, nil
}

func marshalJSONB(rep *MedicalReport) (vitals, medications, attachments []byte, err error) {
	if vitals, err = json.Marshal(rep.Vitals); err != nil {
		return
	}
	if rep.PrescribedMedications == nil {
		rep.PrescribedMedications = []PrescribedMedication{}
	}
	if medications, err = json.Marshal(rep.PrescribedMedications); err != nil {
		return
	}
	if rep.Attachments == nil {
		rep.Attachments = []Attachment{}
	}
	attachments, err = json.Marshal(rep.Attachments)
	return
}

func (r *repoPG) Create(ctx context.Context, rep *MedicalReport) error {
	vitals, medications, attachments, err := marshalJSONB(rep)
	if err != nil {
		return err
	}
	rep.ID = uuid.New()
	if rep.TestResults == nil {
		rep.TestResults = json.RawMessage(`{}`)
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_report (id, athlete_id, doctor_id, report_date, test_name,
			vitals, medical_status, medical_clearance, chronic_medical_condition,
			prescribed_medications, test_results, physician_notes, recommendations,
			next_checkup_date, attachments)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		rep.ID, rep.AthleteID, rep.DoctorID, rep.ReportDate, rep.TestName,
		vitals, rep.MedicalStatus, rep.MedicalClearance, rep.ChronicMedicalCondition,
		medications, rep.TestResults, rep.PhysicianNotes, rep.Recommendations,
		rep.NextCheckupDate, attachments).Scan(&rep.CreatedAt, &rep.UpdatedAt)
}

func (r *repoPG) Update(ctx context.Context, rep *MedicalReport) error {
	vitals, medications, attachments, err := marshalJSONB(rep)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_report SET report_date=$2, test_name=$3, vitals=$4,
			medical_status=$5, medical_clearance=$6, chronic_medical_condition=$7,
			prescribed_medications=$8, test_results=$9, physician_notes=$10,
			recommendations=$11, next_checkup_date=$12, attachments=$13, updated_at=NOW()
		WHERE id = $1`,
		rep.ID, rep.ReportDate, rep.TestName, vitals,
		rep.MedicalStatus, rep.MedicalClearance, rep.ChronicMedicalCondition,
		medications, rep.TestResults, rep.PhysicianNotes,
		rep.Recommendations, rep.NextCheckupDate, attachments)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_report WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalReport, error) {
	return r.scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM medical_report WHERE id = $1`, id))
}

func (r *repoPG) ListByAthlete(ctx context.Context, athleteID uuid.UUID, limit, offset int) ([]*Summary, int, error) {
	return r.list(ctx, "athlete_id", athleteID, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Summary, int, error) {
	return r.list(ctx, "doctor_id", doctorID, limit, offset)
}

func (r *repoPG) list(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]*Summary, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_report WHERE `+column+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, athlete_id, doctor_id, report_date, test_name
		FROM medical_report WHERE `+column+` = $1
		ORDER BY report_date DESC LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.AthleteID, &s.DoctorID, &s.ReportDate, &s.TestName); err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}
