package staffdir

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

type directoryPG struct{ pool *pgxpool.Pool }

func NewDirectoryPG(pool *pgxpool.Pool) Directory {
	return &directoryPG{pool: pool}
}

func (d *directoryPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return d.pool
}

func (d *directoryPG) Assign(ctx context.Context, a *Assignment) error {
	return d.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff_assignment (athlete_id, doctor_id, assigned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (athlete_id) DO UPDATE
			SET doctor_id = EXCLUDED.doctor_id,
			    assigned_by = EXCLUDED.assigned_by,
			    updated_at = NOW()
		RETURNING created_at, updated_at`,
		a.AthleteID, a.DoctorID, a.AssignedBy).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (d *directoryPG) Get(ctx context.Context, athleteID uuid.UUID) (*Assignment, error) {
	var a Assignment
	err := d.conn(ctx).QueryRow(ctx, `
		SELECT athlete_id, doctor_id, assigned_by, created_at, updated_at
		FROM staff_assignment WHERE athlete_id = $1`, athleteID).
		Scan(&a.AthleteID, &a.DoctorID, &a.AssignedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAssignment
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *directoryPG) AssignedDoctor(ctx context.Context, athleteID uuid.UUID) (uuid.UUID, error) {
	a, err := d.Get(ctx, athleteID)
	if err != nil {
		return uuid.Nil, err
	}
	return a.DoctorID, nil
}

func (d *directoryPG) AthletesForDoctor(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := d.conn(ctx).Query(ctx, `
		SELECT athlete_id FROM staff_assignment WHERE doctor_id = $1 ORDER BY updated_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
