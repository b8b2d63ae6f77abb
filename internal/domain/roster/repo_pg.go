package roster

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunysse/lunysse/internal/platform/db"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

const patientCols = `id, psychologist_id, name, email, phone, birth_date, age, status, session_count, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var status string
	if err := row.Scan(&p.ID, &p.PsychologistID, &p.Name, &p.Email, &p.Phone,
		&p.BirthDate, &p.Age, &status, &p.SessionCount, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (psychologist_id, name, email, phone, birth_date, age, status, session_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		p.PsychologistID, p.Name, p.Email, p.Phone, p.BirthDate, p.Age, string(p.Status), p.SessionCount,
	).Scan(&p.ID, &p.CreatedAt)
	return db.Classify(err, "patient", p.Email)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "patient", id)
	}
	return p, nil
}

func (r *patientRepoPG) ListByPsychologist(ctx context.Context, psychologistID int64) ([]Patient, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+patientCols+` FROM patients WHERE psychologist_id = $1 ORDER BY lower(name), id`, psychologistID)
	if err != nil {
		return nil, db.Classify(err, "patients", psychologistID)
	}
	defer rows.Close()

	items := make([]Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, db.Classify(err, "patients", psychologistID)
		}
		items = append(items, *p)
	}
	return items, db.Classify(rows.Err(), "patients", psychologistID)
}

func (r *patientRepoPG) RecordSession(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patients
		SET session_count = session_count + 1,
			status = CASE WHEN status = 'active' THEN 'in_treatment' ELSE status END
		WHERE id = $1`, id)
	if err != nil {
		return db.Classify(err, "patient", id)
	}
	if tag.RowsAffected() == 0 {
		return db.Classify(pgx.ErrNoRows, "patient", id)
	}
	return nil
}
