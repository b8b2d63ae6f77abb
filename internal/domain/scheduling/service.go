package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/breaker"
	"github.com/lunysse/lunysse/internal/platform/db"
)

const maxDurationMinutes = 480

// Roster is the part of the roster service scheduling depends on.
type Roster interface {
	GetPatient(ctx context.Context, psychologistID, id int64) (*roster.Patient, error)
	RecordSession(ctx context.Context, id int64) error
}

// Notifier is told when a psychologist's schedule changed.
type Notifier interface {
	NotifyPsychologist(psychologistID int64)
}

type Service struct {
	appointments AppointmentRepository
	patients     Roster
	tx           db.Transactor
	cb           *gobreaker.CircuitBreaker
	loc          *time.Location
	notifier     Notifier
}

func NewService(appointments AppointmentRepository, patients Roster, tx db.Transactor, cb *gobreaker.CircuitBreaker, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{appointments: appointments, patients: patients, tx: tx, cb: cb, loc: loc}
}

// SetNotifier wires the live dashboard hub.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Location is the zone date-only values are read in.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) ListAppointments(ctx context.Context, psychologistID int64) ([]Appointment, error) {
	return breaker.Call(s.cb, "list appointments", func() ([]Appointment, error) {
		return s.appointments.ListByPsychologist(ctx, psychologistID)
	})
}

func (s *Service) CreateAppointment(ctx context.Context, psychologistID int64, in NewAppointment) (*Appointment, error) {
	if in.PatientID <= 0 {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.Date == nil || in.Date.IsZero() {
		return nil, apperr.Validation("date is required")
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = DefaultDurationMinutes
	}
	if in.DurationMinutes < 0 || in.DurationMinutes > maxDurationMinutes {
		return nil, apperr.Validation("duration_minutes must be between 1 and %d", maxDurationMinutes)
	}
	if _, err := s.patients.GetPatient(ctx, psychologistID, in.PatientID); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:       in.PatientID,
		PsychologistID:  psychologistID,
		Date:            in.Date,
		DurationMinutes: in.DurationMinutes,
		Status:          StatusScheduled,
		Description:     strings.TrimSpace(in.Description),
		Notes:           strings.TrimSpace(in.Notes),
	}
	if err := breaker.Do(s.cb, "create appointment", func() error {
		return s.appointments.Create(ctx, a)
	}); err != nil {
		return nil, err
	}
	s.notify(psychologistID)
	return a, nil
}

// Import stores appointments sent by legacy producers in either naming
// convention. The batch is all or nothing. A record without a psychologist id
// is assigned to psychologistID; one naming another psychologist is refused.
func (s *Service) Import(ctx context.Context, psychologistID int64, raws []RawAppointment) ([]Appointment, error) {
	items := NormalizeAll(raws, s.loc)
	for i := range items {
		a := &items[i]
		if a.PsychologistID == 0 {
			a.PsychologistID = psychologistID
		}
		if a.PsychologistID != psychologistID {
			return nil, apperr.Validation("appointment %d belongs to another psychologist", i)
		}
		if _, ok := ParseStatus(string(a.Status)); !ok {
			if a.Status != "" {
				return nil, apperr.Validation("appointment %d has unknown status %q", i, a.Status)
			}
			a.Status = StatusScheduled
		}
		if a.PatientID <= 0 {
			return nil, apperr.Validation("appointment %d has no patient", i)
		}
		if a.DurationMinutes <= 0 {
			a.DurationMinutes = DefaultDurationMinutes
		}
		a.ID = 0
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i := range items {
			if _, err := s.patients.GetPatient(ctx, psychologistID, items[i].PatientID); err != nil {
				return err
			}
			if err := breaker.Do(s.cb, "import appointment", func() error {
				return s.appointments.Create(ctx, &items[i])
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import appointments: %w", err)
	}
	if len(items) > 0 {
		s.notify(psychologistID)
	}
	return items, nil
}

// UpdateStatus completes or cancels a scheduled appointment. Completing one
// counts a session on the patient in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, psychologistID, id int64, status Status) (*Appointment, error) {
	if status != StatusCompleted && status != StatusCancelled {
		return nil, apperr.Validation("status must be completed or cancelled")
	}

	var out *Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := breaker.Call(s.cb, "get appointment", func() (*Appointment, error) {
			return s.appointments.GetByID(ctx, id)
		})
		if err != nil {
			return err
		}
		if a.PsychologistID != psychologistID {
			return apperr.NotFound("appointment", id)
		}
		if a.Status != StatusScheduled {
			return fmt.Errorf("appointment %d is %s: %w", id, a.Status, apperr.ErrInvalidState)
		}
		if err := breaker.Do(s.cb, "update appointment", func() error {
			return s.appointments.UpdateStatus(ctx, id, StatusScheduled, status)
		}); err != nil {
			return err
		}
		if status == StatusCompleted {
			if err := s.patients.RecordSession(ctx, a.PatientID); err != nil {
				return err
			}
		}
		a.Status = status
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(psychologistID)
	return out, nil
}

func (s *Service) notify(psychologistID int64) {
	if s.notifier != nil {
		s.notifier.NotifyPsychologist(psychologistID)
	}
}
