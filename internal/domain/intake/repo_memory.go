package intake

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/db"
)

type repoMemory struct {
	mu    sync.RWMutex
	seq   int64
	items map[int64]Request
}

func NewRepoMemory() Repository {
	return &repoMemory{items: make(map[int64]Request)}
}

func clone(r Request) Request {
	r.PreferredDates = slices.Clone(r.PreferredDates)
	r.PreferredTimes = slices.Clone(r.PreferredTimes)
	return r
}

func (m *repoMemory) Create(ctx context.Context, r *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	r.ID = m.seq
	r.CreatedAt = time.Now().UTC()
	m.items[r.ID] = clone(*r)

	id := r.ID
	db.OnRollback(ctx, func() {
		m.mu.Lock()
		delete(m.items, id)
		m.mu.Unlock()
	})
	return nil
}

func (m *repoMemory) GetByID(_ context.Context, id int64) (*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("request", id)
	}
	r = clone(r)
	return &r, nil
}

// GetForUpdate needs no lock here: the local transactor already serializes
// transactions.
func (m *repoMemory) GetForUpdate(ctx context.Context, id int64) (*Request, error) {
	return m.GetByID(ctx, id)
}

func (m *repoMemory) List(_ context.Context, f ListFilter) ([]Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Request, 0)
	for _, r := range m.items {
		if f.PsychologistID != 0 && r.PreferredPsychologistID != f.PsychologistID {
			continue
		}
		if f.PatientID != 0 && (r.PatientID == nil || *r.PatientID != f.PatientID) {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *repoMemory) Resolve(ctx context.Context, id int64, status Status, note string, at time.Time) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("request", id)
	}
	if !r.IsPending() {
		return nil, fmt.Errorf("request %d is already %s: %w", id, r.Status, apperr.ErrInvalidState)
	}
	before := r
	resolvedAt := at.UTC()
	r.Status = status
	r.ResolutionNote = note
	r.ResolvedAt = &resolvedAt
	m.items[id] = r

	db.OnRollback(ctx, func() {
		m.mu.Lock()
		m.items[id] = before
		m.mu.Unlock()
	})
	out := clone(r)
	return &out, nil
}
