package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/breaker"
	"github.com/lunysse/lunysse/internal/platform/db"
)

func newTestService() *Service {
	return NewService(NewPatientRepoMemory(), breaker.New(breaker.Store, zerolog.Nop()))
}

func TestCreatePatient_Defaults(t *testing.T) {
	svc := newTestService()
	p, err := svc.CreatePatient(context.Background(), NewPatient{
		PsychologistID: 7, Name: " Ana Souza ", Email: "ana@x.com", Phone: "11999998888",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 || p.Status != StatusActive || p.Name != "Ana Souza" {
		t.Errorf("unexpected patient %+v", p)
	}
	if p.SessionCount != 0 {
		t.Errorf("expected zero sessions, got %d", p.SessionCount)
	}
}

func TestCreatePatient_DerivesAge(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	birth := time.Date(1990, 7, 15, 0, 0, 0, 0, time.UTC)

	p, err := svc.CreatePatient(context.Background(), NewPatient{PsychologistID: 7, Name: "Bia", Email: "bia@x.com", BirthDate: &birth})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Age != 33 {
		t.Errorf("expected age 33, got %d", p.Age)
	}
}

func TestCreatePatient_DuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.CreatePatient(ctx, NewPatient{PsychologistID: 7, Name: "A", Email: "a@x.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.CreatePatient(ctx, NewPatient{PsychologistID: 7, Name: "A again", Email: " A@X.com "})
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if _, err := svc.CreatePatient(ctx, NewPatient{PsychologistID: 8, Name: "A", Email: "a@x.com"}); err != nil {
		t.Errorf("another psychologist may have the same patient email: %v", err)
	}

	list, _ := svc.ListPatients(ctx, 7)
	if len(list) != 1 {
		t.Errorf("expected one patient for psychologist 7, got %d", len(list))
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc := newTestService()
	cases := map[string]NewPatient{
		"no psychologist": {Name: "A", Email: "a@x.com"},
		"no name":         {PsychologistID: 1, Email: "a@x.com"},
		"bad email":       {PsychologistID: 1, Name: "A", Email: "ax.com"},
		"bad status":      {PsychologistID: 1, Name: "A", Email: "a@x.com", Status: "archived"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.CreatePatient(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetPatient_Ownership(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.CreatePatient(ctx, NewPatient{PsychologistID: 7, Name: "A", Email: "a@x.com"})

	if _, err := svc.GetPatient(ctx, 7, p.ID); err != nil {
		t.Fatalf("owner must see the patient: %v", err)
	}
	if _, err := svc.GetPatient(ctx, 8, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for another psychologist, got %v", err)
	}
}

func TestRecordSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.CreatePatient(ctx, NewPatient{PsychologistID: 7, Name: "A", Email: "a@x.com"})

	if err := svc.RecordSession(ctx, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.GetPatient(ctx, 7, p.ID)
	if got.SessionCount != 1 || got.Status != StatusInTreatment {
		t.Errorf("unexpected patient after session %+v", got)
	}
	if err := svc.RecordSession(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestMemoryRepo_RollbackRemovesPatient(t *testing.T) {
	repo := NewPatientRepoMemory()
	tx := db.NewLocalTransactor()

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := repo.Create(ctx, &Patient{PsychologistID: 7, Name: "A", Email: "a@x.com"}); err != nil {
			return err
		}
		return errors.New("later step failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	list, _ := repo.ListByPsychologist(context.Background(), 7)
	if len(list) != 0 {
		t.Errorf("expected rollback to remove the patient, got %d", len(list))
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"Ativo":         StatusActive,
		"inativo":       StatusInactive,
		"Em tratamento": StatusInTreatment,
		"in_treatment":  StatusInTreatment,
	}
	for in, want := range cases {
		if got, ok := ParseStatus(in); !ok || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Error("unknown status must not parse")
	}
	if !StatusInTreatment.IsActive() || StatusInactive.IsActive() {
		t.Error("unexpected IsActive classification")
	}
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := AgeAt(birth, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)); got != 33 {
		t.Errorf("day before birthday: got %d", got)
	}
	if got := AgeAt(birth, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)); got != 34 {
		t.Errorf("on birthday: got %d", got)
	}
}
