package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/lunysse/lunysse/internal/domain/identity"
	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/auth"
	"github.com/lunysse/lunysse/internal/platform/breaker"
	"github.com/lunysse/lunysse/internal/platform/db"
	"github.com/lunysse/lunysse/internal/platform/events"
	"github.com/lunysse/lunysse/internal/platform/inflight"
)

type fakeDirectory map[int64]bool

func (d fakeDirectory) GetPsychologist(_ context.Context, id int64) (*identity.Psychologist, error) {
	if !d[id] {
		return nil, apperr.NotFound("psychologist", id)
	}
	return &identity.Psychologist{ID: id}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.RequestResolved
	err    error
}

func (p *recordingPublisher) PublishRequestResolved(_ context.Context, evt events.RequestResolved) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []int64
}

func (n *recordingNotifier) NotifyPsychologist(id int64) {
	n.mu.Lock()
	n.calls = append(n.calls, id)
	n.mu.Unlock()
}

// failingResolve lets everything through except Resolve.
type failingResolve struct {
	Repository
}

func (failingResolve) Resolve(context.Context, int64, Status, string, time.Time) (*Request, error) {
	return nil, apperr.Transport("resolve request", errors.New("connection reset"))
}

type fixture struct {
	svc       *Service
	repo      Repository
	roster    *roster.Service
	guard     *inflight.Local
	publisher *recordingPublisher
	notifier  *recordingNotifier
	metrics   *Metrics
}

func newFixture(t *testing.T, wrap func(Repository) Repository) *fixture {
	t.Helper()
	cb := breaker.New(breaker.Store, zerolog.Nop())
	repo := NewRepoMemory()
	if wrap != nil {
		repo = wrap(repo)
	}
	f := &fixture{
		repo:      repo,
		roster:    roster.NewService(roster.NewPatientRepoMemory(), cb),
		guard:     inflight.NewLocal(),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		metrics:   NewMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewService(Deps{
		Requests:  repo,
		Roster:    f.roster,
		Directory: fakeDirectory{7: true, 8: true},
		Tx:        db.NewLocalTransactor(),
		Guard:     f.guard,
		Breaker:   cb,
		Publisher: f.publisher,
		Notifier:  f.notifier,
		Metrics:   f.metrics,
		Logger:    zerolog.Nop(),
	})
	return f
}

func (f *fixture) submit(t *testing.T, psychologistID int64, email string) *Request {
	t.Helper()
	r, err := f.svc.Submit(context.Background(), SubmitInput{
		PatientName:             "Maria",
		PatientEmail:            email,
		PatientPhone:            "11999990000",
		PreferredPsychologistID: psychologistID,
		Description:             "Ansiedade antes de provas",
		Urgency:                 "media",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return r
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, nil)
	r := f.submit(t, 7, "new@x.com")

	if r.Status != StatusPending || r.Urgency != UrgencyMedium {
		t.Errorf("unexpected request %+v", r)
	}
	if r.PreferredDates == nil || r.PreferredTimes == nil {
		t.Error("preferred dates and times must be empty arrays, not nil")
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0] != 7 {
		t.Errorf("expected psychologist 7 notified, got %v", f.notifier.calls)
	}
}

func TestSubmit_AcceptsLegacyPsychologistField(t *testing.T) {
	f := newFixture(t, nil)
	r, err := f.svc.Submit(context.Background(), SubmitInput{
		PatientName: "Maria", PatientEmail: "m@x.com", PreferredPsychologist: 8, Description: "x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PreferredPsychologistID != 8 {
		t.Errorf("expected psychologist 8, got %d", r.PreferredPsychologistID)
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t, nil)
	valid := SubmitInput{PatientName: "Maria", PatientEmail: "m@x.com", PreferredPsychologistID: 7, Description: "x"}

	cases := map[string]func(in *SubmitInput){
		"blank description": func(in *SubmitInput) { in.Description = "   " },
		"no psychologist":   func(in *SubmitInput) { in.PreferredPsychologistID = 0 },
		"no name":           func(in *SubmitInput) { in.PatientName = "" },
		"bad email":         func(in *SubmitInput) { in.PatientEmail = "maria" },
		"bad urgency":       func(in *SubmitInput) { in.Urgency = "extrema" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			if _, err := f.svc.Submit(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	in := valid
	in.PreferredPsychologistID = 99
	if _, err := f.svc.Submit(context.Background(), in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown psychologist: expected not found, got %v", err)
	}

	all, _ := f.svc.List(context.Background(), ListFilter{})
	if len(all) != 0 {
		t.Errorf("failed submissions must not be stored, got %d", len(all))
	}
}

func TestAccept_CreatesPatient(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.submit(t, 7, "new@x.com")

	res, err := f.svc.Accept(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Patient.PsychologistID != 7 || res.Patient.Email != "new@x.com" {
		t.Errorf("unexpected patient %+v", res.Patient)
	}
	if res.Patient.Status != roster.StatusActive || res.Patient.Age != DefaultPatientAge {
		t.Errorf("expected default status and age, got %+v", res.Patient)
	}
	if res.Request.Status != StatusAccepted || res.Request.ResolutionNote != AcceptNote || res.Request.ResolvedAt == nil {
		t.Errorf("unexpected request %+v", res.Request)
	}

	pending, _ := f.svc.ListPending(ctx, 7)
	if len(pending) != 0 {
		t.Errorf("accepted request must leave the pending list, got %+v", pending)
	}
	patients, _ := f.roster.ListPatients(ctx, 7)
	if len(patients) != 1 {
		t.Errorf("expected one patient, got %d", len(patients))
	}

	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != events.TypeRequestAccepted {
		t.Fatalf("expected one accepted event, got %+v", f.publisher.events)
	}
	if evt := f.publisher.events[0]; evt.PatientID == nil || *evt.PatientID != res.Patient.ID {
		t.Errorf("event must carry the new patient id, got %+v", evt)
	}
	if got := testutil.ToFloat64(f.metrics.transitions.WithLabelValues("accepted")); got != 1 {
		t.Errorf("expected one accepted sample, got %v", got)
	}
}

func TestAccept_DuplicateEmailLeavesRequestPending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.roster.CreatePatient(ctx, roster.NewPatient{PsychologistID: 7, Name: "A", Email: "a@x.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := f.submit(t, 7, " A@x.com")

	_, err := f.svc.Accept(ctx, r.ID)
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got, _ := f.svc.Get(ctx, r.ID)
	if got.Status != StatusPending {
		t.Errorf("expected request to stay pending, got %q", got.Status)
	}
	patients, _ := f.roster.ListPatients(ctx, 7)
	if len(patients) != 1 {
		t.Errorf("expected no new patient, got %d", len(patients))
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("expected no event, got %+v", f.publisher.events)
	}
	if got := testutil.ToFloat64(f.metrics.transitions.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("expected one duplicate sample, got %v", got)
	}
}

func TestAccept_SameEmailUnderAnotherPsychologist(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.roster.CreatePatient(ctx, roster.NewPatient{PsychologistID: 8, Name: "A", Email: "a@x.com"})
	r := f.submit(t, 7, "a@x.com")

	if _, err := f.svc.Accept(ctx, r.ID); err != nil {
		t.Fatalf("the guard is per psychologist, got %v", err)
	}
}

func TestAccept_OnlyOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.submit(t, 7, "new@x.com")

	if _, err := f.svc.Accept(ctx, r.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := f.svc.Accept(ctx, r.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("second accept: expected invalid state, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, r.ID, ""); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("reject after accept: expected invalid state, got %v", err)
	}
	patients, _ := f.roster.ListPatients(ctx, 7)
	if len(patients) != 1 {
		t.Errorf("expected exactly one patient, got %d", len(patients))
	}
}

func TestAccept_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Accept(context.Background(), 404); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAccept_OtherPsychologistSeesNotFound(t *testing.T) {
	f := newFixture(t, nil)
	r := f.submit(t, 7, "new@x.com")
	ctx := auth.WithSession(context.Background(), auth.Session{UserID: 8, Role: auth.RolePsychologist})

	if _, err := f.svc.Accept(ctx, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAccept_InFlight(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.submit(t, 7, "new@x.com")

	f.guard.Acquire(ctx, "request:1")
	if _, err := f.svc.Accept(ctx, r.ID); !errors.Is(err, apperr.ErrInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	f.guard.Release(ctx, "request:1")

	if _, err := f.svc.Accept(ctx, r.ID); err != nil {
		t.Fatalf("expected accept after release, got %v", err)
	}
	if ok, _ := f.guard.Acquire(ctx, "request:1"); !ok {
		t.Error("guard must be released after the call returns")
	}
}

func TestAccept_ConcurrentCallsCreateOnePatient(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.submit(t, 7, "new@x.com")

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, r.ID)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, apperr.ErrInFlight) && !errors.Is(err, apperr.ErrInvalidState) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one successful accept, got %d", successes)
	}
	patients, _ := f.roster.ListPatients(ctx, 7)
	if len(patients) != 1 {
		t.Errorf("expected exactly one patient, got %d", len(patients))
	}
}

func TestAccept_StoreFailureLeavesRequestPending(t *testing.T) {
	f := newFixture(t, func(r Repository) Repository { return failingResolve{r} })
	ctx := context.Background()
	r := f.submit(t, 7, "new@x.com")

	_, err := f.svc.Accept(ctx, r.ID)
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	got, _ := f.svc.Get(ctx, r.ID)
	if got.Status != StatusPending {
		t.Errorf("expected request to stay pending, got %q", got.Status)
	}
	patients, _ := f.roster.ListPatients(ctx, 7)
	if len(patients) != 0 {
		t.Errorf("expected the patient insert to be rolled back, got %d", len(patients))
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.submit(t, 7, "new@x.com")

	got, err := f.svc.Reject(ctx, r.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusRejected || got.ResolutionNote != RejectNote {
		t.Errorf("unexpected request %+v", got)
	}
	patients, _ := f.roster.ListPatients(ctx, 7)
	if len(patients) != 0 {
		t.Errorf("reject must not create a patient, got %d", len(patients))
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != events.TypeRequestRejected || f.publisher.events[0].PatientID != nil {
		t.Errorf("unexpected events %+v", f.publisher.events)
	}
}

func TestReject_CustomNote(t *testing.T) {
	f := newFixture(t, nil)
	r := f.submit(t, 7, "new@x.com")

	got, err := f.svc.Reject(context.Background(), r.ID, " Agenda cheia ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ResolutionNote != "Agenda cheia" {
		t.Errorf("unexpected note %q", got.ResolutionNote)
	}
}

func TestPublishFailureDoesNotFailAccept(t *testing.T) {
	f := newFixture(t, nil)
	f.publisher.err = errors.New("broker down")
	r := f.submit(t, 7, "new@x.com")

	if _, err := f.svc.Accept(context.Background(), r.ID); err != nil {
		t.Fatalf("publish failures must not fail the accept: %v", err)
	}
}

func TestListPending_Order(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.submit(t, 7, "a@x.com")
	f.submit(t, 8, "b@x.com")
	third := f.submit(t, 7, "c@x.com")
	f.svc.Reject(ctx, f.submit(t, 7, "d@x.com").ID, "")

	pending, err := f.svc.ListPending(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID || pending[1].ID != third.ID {
		t.Errorf("unexpected pending list %+v", pending)
	}
}

func TestParseAliases(t *testing.T) {
	if st, ok := ParseStatus("Pendente"); !ok || st != StatusPending {
		t.Errorf("pendente: %q %v", st, ok)
	}
	if st, ok := ParseStatus("aceito"); !ok || st != StatusAccepted {
		t.Errorf("aceito: %q %v", st, ok)
	}
	if u, ok := ParseUrgency("Alta"); !ok || u != UrgencyHigh {
		t.Errorf("alta: %q %v", u, ok)
	}
	if _, ok := ParseUrgency("urgent"); ok {
		t.Error("unknown urgency must not parse")
	}
}
