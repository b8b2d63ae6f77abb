package reporting

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunysse/lunysse/internal/platform/db"
)

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewAlertRepoPG(pool *pgxpool.Pool) AlertRepository { return &alertRepoPG{pool: pool} }

func (r *alertRepoPG) Create(ctx context.Context, a *RiskAlert) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO risk_alerts (patient_id, patient_name, psychologist_id, reason, risk, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.PatientID, a.PatientName, a.PsychologistID, a.Reason, string(a.Risk), a.Date,
	).Scan(&a.ID)
	return db.Classify(err, "risk alert", a.PatientID)
}

func (r *alertRepoPG) ListByPsychologist(ctx context.Context, psychologistID int64) ([]RiskAlert, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, patient_name, psychologist_id, reason, risk, date
		FROM risk_alerts WHERE psychologist_id = $1
		ORDER BY date DESC, id DESC`, psychologistID)
	if err != nil {
		return nil, db.Classify(err, "risk alerts", psychologistID)
	}
	defer rows.Close()

	items := make([]RiskAlert, 0)
	for rows.Next() {
		var a RiskAlert
		var risk string
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.PsychologistID, &a.Reason, &risk, &a.Date); err != nil {
			return nil, db.Classify(err, "risk alerts", psychologistID)
		}
		a.Risk = RiskLevel(risk)
		items = append(items, a)
	}
	return items, db.Classify(rows.Err(), "risk alerts", psychologistID)
}
