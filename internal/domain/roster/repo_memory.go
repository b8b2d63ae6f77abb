package roster

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/db"
)

type patientRepoMemory struct {
	mu    sync.RWMutex
	seq   int64
	items map[int64]Patient
}

// NewPatientRepoMemory returns the in-memory development store.
func NewPatientRepoMemory() PatientRepository {
	return &patientRepoMemory{items: make(map[int64]Patient)}
}

func (r *patientRepoMemory) Create(ctx context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.PsychologistID == p.PsychologistID && SameEmail(existing.Email, p.Email) {
			return fmt.Errorf("patient %s: %w", p.Email, apperr.ErrDuplicate)
		}
	}

	r.seq++
	p.ID = r.seq
	p.CreatedAt = time.Now().UTC()
	r.items[p.ID] = *p

	id := p.ID
	db.OnRollback(ctx, func() {
		r.mu.Lock()
		delete(r.items, id)
		r.mu.Unlock()
	})
	return nil
}

func (r *patientRepoMemory) GetByID(_ context.Context, id int64) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("patient", id)
	}
	return &p, nil
}

func (r *patientRepoMemory) ListByPsychologist(_ context.Context, psychologistID int64) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Patient, 0)
	for _, p := range r.items {
		if p.PsychologistID == psychologistID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *patientRepoMemory) RecordSession(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return apperr.NotFound("patient", id)
	}
	before := p
	p.SessionCount++
	if p.Status == StatusActive {
		p.Status = StatusInTreatment
	}
	r.items[id] = p

	db.OnRollback(ctx, func() {
		r.mu.Lock()
		r.items[id] = before
		r.mu.Unlock()
	})
	return nil
}
