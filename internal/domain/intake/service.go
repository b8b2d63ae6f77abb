package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/sony/gobreaker"

	"github.com/lunysse/lunysse/internal/domain/identity"
	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/auth"
	"github.com/lunysse/lunysse/internal/platform/breaker"
	"github.com/lunysse/lunysse/internal/platform/db"
	"github.com/lunysse/lunysse/internal/platform/events"
	"github.com/lunysse/lunysse/internal/platform/inflight"
)

// Roster is the part of the roster service acceptance writes to.
type Roster interface {
	ListPatients(ctx context.Context, psychologistID int64) ([]roster.Patient, error)
	CreatePatient(ctx context.Context, in roster.NewPatient) (*roster.Patient, error)
}

// Directory resolves the psychologist a request is addressed to.
type Directory interface {
	GetPsychologist(ctx context.Context, id int64) (*identity.Psychologist, error)
}

// Notifier is told when a psychologist's requests changed.
type Notifier interface {
	NotifyPsychologist(psychologistID int64)
}

// Deps are the collaborators of Service. Publisher, Notifier and Metrics are
// optional.
type Deps struct {
	Requests  Repository
	Roster    Roster
	Directory Directory
	Tx        db.Transactor
	Guard     inflight.Guard
	Breaker   *gobreaker.CircuitBreaker
	Publisher events.Publisher
	Notifier  Notifier
	Metrics   *Metrics
	Logger    zerolog.Logger
}

type Service struct {
	requests  Repository
	patients  Roster
	directory Directory
	tx        db.Transactor
	guard     inflight.Guard
	cb        *gobreaker.CircuitBreaker
	publisher events.Publisher
	notifier  Notifier
	metrics   *Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(d Deps) *Service {
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	if d.Guard == nil {
		d.Guard = inflight.NewLocal()
	}
	return &Service{
		requests:  d.Requests,
		patients:  d.Roster,
		directory: d.Directory,
		tx:        d.Tx,
		guard:     d.Guard,
		cb:        d.Breaker,
		publisher: d.Publisher,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		logger:    d.Logger.With().Str("component", "intake").Logger(),
		now:       time.Now,
	}
}

// Submit creates a pending request addressed to an existing psychologist.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	r := &Request{
		PatientID:               in.PatientID,
		PatientName:             strings.TrimSpace(in.PatientName),
		PatientEmail:            strings.TrimSpace(in.PatientEmail),
		PatientPhone:            strings.TrimSpace(in.PatientPhone),
		PreferredPsychologistID: in.psychologistID(),
		Description:             strings.TrimSpace(in.Description),
		Urgency:                 UrgencyMedium,
		Status:                  StatusPending,
		PreferredDates:          lo.Ternary(in.PreferredDates == nil, []string{}, in.PreferredDates),
		PreferredTimes:          lo.Ternary(in.PreferredTimes == nil, []string{}, in.PreferredTimes),
	}
	if r.Description == "" {
		return nil, apperr.Validation("description is required")
	}
	if r.PreferredPsychologistID <= 0 {
		return nil, apperr.Validation("select a psychologist")
	}
	if r.PatientName == "" {
		return nil, apperr.Validation("patient_name is required")
	}
	if !strings.Contains(r.PatientEmail, "@") {
		return nil, apperr.Validation("a valid patient_email is required")
	}
	if strings.TrimSpace(in.Urgency) != "" {
		u, ok := ParseUrgency(in.Urgency)
		if !ok {
			return nil, apperr.Validation("urgency %q is not allowed", in.Urgency)
		}
		r.Urgency = u
	}

	if _, err := s.directory.GetPsychologist(ctx, r.PreferredPsychologistID); err != nil {
		return nil, err
	}
	if err := breaker.Do(s.cb, "create request", func() error {
		return s.requests.Create(ctx, r)
	}); err != nil {
		return nil, err
	}
	s.notify(r.PreferredPsychologistID)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Request, error) {
	return breaker.Call(s.cb, "get request", func() (*Request, error) {
		return s.requests.GetByID(ctx, id)
	})
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Request, error) {
	return breaker.Call(s.cb, "list requests", func() ([]Request, error) {
		return s.requests.List(ctx, f)
	})
}

// ListPending returns the psychologist's pending requests, oldest first.
func (s *Service) ListPending(ctx context.Context, psychologistID int64) ([]Request, error) {
	return s.List(ctx, ListFilter{PsychologistID: psychologistID, Status: StatusPending})
}

// Accept resolves a pending request and adds its patient to the
// psychologist's roster in one transaction. An email already on the roster
// aborts with ErrDuplicate and leaves the request pending.
func (s *Service) Accept(ctx context.Context, requestID int64) (*AcceptResult, error) {
	release, err := s.acquire(ctx, requestID)
	if err != nil {
		s.metrics.observe("accepted", err)
		return nil, err
	}
	defer release()

	var res AcceptResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.loadPending(ctx, requestID)
		if err != nil {
			return err
		}

		existing, err := s.patients.ListPatients(ctx, req.PreferredPsychologistID)
		if err != nil {
			return err
		}
		if lo.ContainsBy(existing, func(p roster.Patient) bool { return roster.SameEmail(p.Email, req.PatientEmail) }) {
			return fmt.Errorf("patient %s is already on the roster: %w", req.PatientEmail, apperr.ErrDuplicate)
		}

		birth := DefaultPatientBirthDate
		age := DefaultPatientAge
		p, err := s.patients.CreatePatient(ctx, roster.NewPatient{
			PsychologistID: req.PreferredPsychologistID,
			Name:           req.PatientName,
			Email:          req.PatientEmail,
			Phone:          req.PatientPhone,
			BirthDate:      &birth,
			Age:            &age,
			Status:         roster.StatusActive,
		})
		if err != nil {
			return err
		}

		resolved, err := s.resolve(ctx, requestID, StatusAccepted, AcceptNote)
		if err != nil {
			return err
		}
		res = AcceptResult{Patient: p, Request: resolved}
		return nil
	})
	s.metrics.observe("accepted", err)
	if err != nil {
		return nil, err
	}

	s.announce(ctx, events.TypeRequestAccepted, res.Request, &res.Patient.ID)
	return &res, nil
}

// Reject resolves a pending request without touching the roster. A blank
// note is replaced with RejectNote.
func (s *Service) Reject(ctx context.Context, requestID int64, note string) (*Request, error) {
	release, err := s.acquire(ctx, requestID)
	if err != nil {
		s.metrics.observe("rejected", err)
		return nil, err
	}
	defer release()

	if strings.TrimSpace(note) == "" {
		note = RejectNote
	}

	var out *Request
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadPending(ctx, requestID); err != nil {
			return err
		}
		resolved, err := s.resolve(ctx, requestID, StatusRejected, strings.TrimSpace(note))
		out = resolved
		return err
	})
	s.metrics.observe("rejected", err)
	if err != nil {
		return nil, err
	}

	s.announce(ctx, events.TypeRequestRejected, out, nil)
	return out, nil
}

// acquire takes the in-flight slot for requestID. A guard backend failure is
// logged and the call proceeds; the transaction still decides.
func (s *Service) acquire(ctx context.Context, requestID int64) (func(), error) {
	key := "request:" + strconv.FormatInt(requestID, 10)
	ok, err := s.guard.Acquire(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Int64("request_id", requestID).Msg("in-flight guard unavailable")
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("request %d: %w", requestID, apperr.ErrInFlight)
	}
	return func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn().Err(err).Int64("request_id", requestID).Msg("release in-flight guard")
		}
	}, nil
}

// loadPending locks the request and checks it can still be resolved by the
// caller. A psychologist only sees requests addressed to them.
func (s *Service) loadPending(ctx context.Context, requestID int64) (*Request, error) {
	req, err := breaker.Call(s.cb, "get request", func() (*Request, error) {
		return s.requests.GetForUpdate(ctx, requestID)
	})
	if err != nil {
		return nil, err
	}
	if sess, ok := auth.SessionFromContext(ctx); ok && sess.IsPsychologist() && sess.UserID != req.PreferredPsychologistID {
		return nil, apperr.NotFound("request", requestID)
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("request %d is already %s: %w", requestID, req.Status, apperr.ErrInvalidState)
	}
	return req, nil
}

func (s *Service) resolve(ctx context.Context, id int64, status Status, note string) (*Request, error) {
	return breaker.Call(s.cb, "resolve request", func() (*Request, error) {
		return s.requests.Resolve(ctx, id, status, note, s.now())
	})
}

// announce publishes the resolution and refreshes live dashboards. Failures
// are logged only: the transition is already committed.
func (s *Service) announce(ctx context.Context, typ string, r *Request, patientID *int64) {
	evt := events.NewRequestResolved(typ, r.ID, r.PreferredPsychologistID, patientID, r.ResolutionNote)
	if err := s.publisher.PublishRequestResolved(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", typ).
			Int64("request_id", r.ID).
			Msg("failed to publish request event")
	}
	s.notify(r.PreferredPsychologistID)
}

func (s *Service) notify(psychologistID int64) {
	if s.notifier != nil {
		s.notifier.NotifyPsychologist(psychologistID)
	}
}
