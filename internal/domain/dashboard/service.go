package dashboard

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lunysse/lunysse/internal/domain/intake"
	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/domain/scheduling"
	"github.com/lunysse/lunysse/internal/platform/apperr"
)

type AppointmentSource interface {
	ListAppointments(ctx context.Context, psychologistID int64) ([]scheduling.Appointment, error)
}

type PatientSource interface {
	ListPatients(ctx context.Context, psychologistID int64) ([]roster.Patient, error)
}

type RequestSource interface {
	ListPending(ctx context.Context, psychologistID int64) ([]intake.Request, error)
}

type Service struct {
	appointments AppointmentSource
	patients     PatientSource
	requests     RequestSource
	opts         Options
	loc          *time.Location
	now          func() time.Time
}

func NewService(appointments AppointmentSource, patients PatientSource, requests RequestSource, opts Options, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appointments: appointments,
		patients:     patients,
		requests:     requests,
		opts:         opts,
		loc:          loc,
		now:          time.Now,
	}
}

// Load fetches the psychologist's snapshot concurrently and builds the view.
// Any failed load fails the whole call; a partial view is never returned.
func (s *Service) Load(ctx context.Context, psychologistID int64) (*View, error) {
	var (
		appointments []scheduling.Appointment
		patients     []roster.Patient
		requests     []intake.Request
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		appointments, err = s.appointments.ListAppointments(gctx, psychologistID)
		return err
	})
	g.Go(func() (err error) {
		patients, err = s.patients.ListPatients(gctx, psychologistID)
		return err
	})
	g.Go(func() (err error) {
		requests, err = s.requests.ListPending(gctx, psychologistID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, apperr.ErrTransport) {
			return nil, err
		}
		return nil, apperr.Transport("load dashboard", err)
	}

	return Build(psychologistID, appointments, patients, requests, s.now().In(s.loc), s.opts), nil
}
