package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const requestCols = `id, patient_id, patient_name, patient_email, patient_phone, preferred_psychologist_id,
	description, urgency, status, resolution_note, preferred_dates, preferred_times, created_at, resolved_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	var urgency, status string
	if err := row.Scan(&r.ID, &r.PatientID, &r.PatientName, &r.PatientEmail, &r.PatientPhone,
		&r.PreferredPsychologistID, &r.Description, &urgency, &status, &r.ResolutionNote,
		&r.PreferredDates, &r.PreferredTimes, &r.CreatedAt, &r.ResolvedAt); err != nil {
		return nil, err
	}
	r.Urgency = Urgency(urgency)
	r.Status = Status(status)
	return &r, nil
}

func (p *repoPG) Create(ctx context.Context, r *Request) error {
	err := db.Conn(ctx, p.pool).QueryRow(ctx, `
		INSERT INTO requests (patient_id, patient_name, patient_email, patient_phone, preferred_psychologist_id,
			description, urgency, status, preferred_dates, preferred_times)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		r.PatientID, r.PatientName, r.PatientEmail, r.PatientPhone, r.PreferredPsychologistID,
		r.Description, string(r.Urgency), string(r.Status), r.PreferredDates, r.PreferredTimes,
	).Scan(&r.ID, &r.CreatedAt)
	return db.Classify(err, "request", r.PatientEmail)
}

func (p *repoPG) GetByID(ctx context.Context, id int64) (*Request, error) {
	r, err := scanRequest(db.Conn(ctx, p.pool).QueryRow(ctx, `SELECT `+requestCols+` FROM requests WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "request", id)
	}
	return r, nil
}

func (p *repoPG) GetForUpdate(ctx context.Context, id int64) (*Request, error) {
	r, err := scanRequest(db.Conn(ctx, p.pool).QueryRow(ctx,
		`SELECT `+requestCols+` FROM requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, db.Classify(err, "request", id)
	}
	return r, nil
}

func (p *repoPG) List(ctx context.Context, f ListFilter) ([]Request, error) {
	var where []string
	var args []interface{}
	if f.PsychologistID != 0 {
		args = append(args, f.PsychologistID)
		where = append(where, fmt.Sprintf("preferred_psychologist_id = $%d", len(args)))
	}
	if f.PatientID != 0 {
		args = append(args, f.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + requestCols + ` FROM requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.Conn(ctx, p.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(err, "requests", f.PsychologistID)
	}
	defer rows.Close()

	items := make([]Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, db.Classify(err, "requests", f.PsychologistID)
		}
		items = append(items, *r)
	}
	return items, db.Classify(rows.Err(), "requests", f.PsychologistID)
}

func (p *repoPG) Resolve(ctx context.Context, id int64, status Status, note string, at time.Time) (*Request, error) {
	r, err := scanRequest(db.Conn(ctx, p.pool).QueryRow(ctx, `
		UPDATE requests SET status = $2, resolution_note = $3, resolved_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestCols, id, string(status), note, at))
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := p.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("request %d is already %s: %w", id, current.Status, apperr.ErrInvalidState)
	}
	if err != nil {
		return nil, db.Classify(err, "request", id)
	}
	return r, nil
}
