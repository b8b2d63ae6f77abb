package roster

import "context"

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// ListByPsychologist returns patients ordered by name, then id.
	ListByPsychologist(ctx context.Context, psychologistID int64) ([]Patient, error)
	// RecordSession increments session_count and moves an active patient to
	// in_treatment.
	RecordSession(ctx context.Context, id int64) error
}
