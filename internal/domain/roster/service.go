package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sony/gobreaker"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/breaker"
)

type Service struct {
	patients PatientRepository
	cb       *gobreaker.CircuitBreaker
	now      func() time.Time
}

func NewService(patients PatientRepository, cb *gobreaker.CircuitBreaker) *Service {
	return &Service{patients: patients, cb: cb, now: time.Now}
}

func (s *Service) ListPatients(ctx context.Context, psychologistID int64) ([]Patient, error) {
	return breaker.Call(s.cb, "list patients", func() ([]Patient, error) {
		return s.patients.ListByPsychologist(ctx, psychologistID)
	})
}

// GetPatient returns the patient only when it belongs to psychologistID.
func (s *Service) GetPatient(ctx context.Context, psychologistID, id int64) (*Patient, error) {
	p, err := breaker.Call(s.cb, "get patient", func() (*Patient, error) {
		return s.patients.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if p.PsychologistID != psychologistID {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

// CreatePatient adds a patient to a psychologist's roster, refusing an email
// already on it.
func (s *Service) CreatePatient(ctx context.Context, in NewPatient) (*Patient, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.PsychologistID <= 0 {
		return nil, apperr.Validation("psychologist_id is required")
	}
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	if _, ok := ParseStatus(string(in.Status)); !ok {
		return nil, apperr.Validation("invalid patient status: %s", in.Status)
	}

	existing, err := s.ListPatients(ctx, in.PsychologistID)
	if err != nil {
		return nil, err
	}
	if lo.ContainsBy(existing, func(p Patient) bool { return SameEmail(p.Email, in.Email) }) {
		return nil, fmt.Errorf("patient %s is already on the roster: %w", in.Email, apperr.ErrDuplicate)
	}

	p := &Patient{
		PsychologistID: in.PsychologistID,
		Name:           in.Name,
		Email:          in.Email,
		Phone:          strings.TrimSpace(in.Phone),
		BirthDate:      in.BirthDate,
		Status:         in.Status,
	}
	switch {
	case in.Age != nil:
		p.Age = *in.Age
	case in.BirthDate != nil:
		p.Age = AgeAt(*in.BirthDate, s.now())
	}

	if err := breaker.Do(s.cb, "create patient", func() error {
		return s.patients.Create(ctx, p)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordSession counts a completed session for the patient.
func (s *Service) RecordSession(ctx context.Context, id int64) error {
	return breaker.Do(s.cb, "record session", func() error {
		return s.patients.RecordSession(ctx, id)
	})
}

// AgeAt returns the age in whole years on the given day.
func AgeAt(birth, on time.Time) int {
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
