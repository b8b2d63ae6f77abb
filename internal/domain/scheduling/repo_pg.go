package scheduling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const appointmentCols = `id, patient_id, psychologist_id, date, duration_minutes, status, description, notes, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	if err := row.Scan(&a.ID, &a.PatientID, &a.PsychologistID, &a.Date, &a.DurationMinutes,
		&status, &a.Description, &a.Notes, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, psychologist_id, date, duration_minutes, status, description, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		a.PatientID, a.PsychologistID, a.Date, a.DurationMinutes, string(a.Status), a.Description, a.Notes,
	).Scan(&a.ID, &a.CreatedAt)
	return db.Classify(err, "appointment", a.PatientID)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "appointment", id)
	}
	return a, nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointments SET status = $3 WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return db.Classify(err, "appointment", id)
	}
	if tag.RowsAffected() == 0 {
		cur, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("appointment %d is %s: %w", id, cur.Status, apperr.ErrInvalidState)
	}
	return nil
}

func (r *appointmentRepoPG) ListByPsychologist(ctx context.Context, psychologistID int64) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE psychologist_id = $1
		ORDER BY date ASC NULLS LAST, id`, psychologistID)
	if err != nil {
		return nil, db.Classify(err, "appointments", psychologistID)
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, db.Classify(err, "appointments", psychologistID)
		}
		items = append(items, *a)
	}
	return items, db.Classify(rows.Err(), "appointments", psychologistID)
}
