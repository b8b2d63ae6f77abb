package reporting

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/domain/scheduling"
	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/breaker"
)

type AppointmentSource interface {
	ListAppointments(ctx context.Context, psychologistID int64) ([]scheduling.Appointment, error)
}

type PatientSource interface {
	ListPatients(ctx context.Context, psychologistID int64) ([]roster.Patient, error)
	GetPatient(ctx context.Context, psychologistID, id int64) (*roster.Patient, error)
}

type Service struct {
	appointments AppointmentSource
	patients     PatientSource
	alerts       AlertRepository
	cb           *gobreaker.CircuitBreaker
	opts         Options
	loc          *time.Location
	now          func() time.Time
}

func NewService(appointments AppointmentSource, patients PatientSource, alerts AlertRepository, cb *gobreaker.CircuitBreaker, opts Options, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appointments: appointments,
		patients:     patients,
		alerts:       alerts,
		cb:           cb,
		opts:         opts,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *Service) Load(ctx context.Context, psychologistID int64) (*Report, error) {
	var in Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Appointments, err = s.appointments.ListAppointments(gctx, psychologistID)
		return err
	})
	g.Go(func() (err error) {
		in.Patients, err = s.patients.ListPatients(gctx, psychologistID)
		return err
	})
	g.Go(func() (err error) {
		in.Alerts, err = breaker.Call(s.cb, "list risk alerts", func() ([]RiskAlert, error) {
			return s.alerts.ListByPsychologist(gctx, psychologistID)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, apperr.ErrTransport) {
			return nil, err
		}
		return nil, apperr.Transport("load report", err)
	}

	return Build(psychologistID, in, s.now().In(s.loc), s.opts), nil
}

// RecordAlert stores an alert about one of the psychologist's patients.
func (s *Service) RecordAlert(ctx context.Context, psychologistID int64, in NewAlert) (*RiskAlert, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	risk, ok := ParseRiskLevel(in.Risk)
	if !ok {
		return nil, apperr.Validation("risk %q is not allowed", in.Risk)
	}
	p, err := s.patients.GetPatient(ctx, psychologistID, in.PatientID)
	if err != nil {
		return nil, err
	}

	a := &RiskAlert{
		PatientID:      p.ID,
		PatientName:    p.Name,
		PsychologistID: psychologistID,
		Reason:         reason,
		Risk:           risk,
		Date:           s.now().UTC(),
	}
	if in.Date != nil && !in.Date.IsZero() {
		a.Date = *in.Date
	}
	if err := breaker.Do(s.cb, "create risk alert", func() error {
		return s.alerts.Create(ctx, a)
	}); err != nil {
		return nil, err
	}
	return a, nil
}
