package scheduling

import "context"

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	// UpdateStatus moves an appointment from one status to another. It
	// fails with ErrInvalidState when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	// ListByPsychologist orders by date ascending with undated appointments
	// last, then by id.
	ListByPsychologist(ctx context.Context, psychologistID int64) ([]Appointment, error)
}
