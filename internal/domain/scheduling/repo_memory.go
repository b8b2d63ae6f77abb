package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/db"
)

type appointmentRepoMemory struct {
	mu    sync.RWMutex
	seq   int64
	items map[int64]Appointment
}

func NewAppointmentRepoMemory() AppointmentRepository {
	return &appointmentRepoMemory{items: make(map[int64]Appointment)}
}

func (r *appointmentRepoMemory) Create(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	a.ID = r.seq
	a.CreatedAt = time.Now().UTC()
	r.items[a.ID] = *a

	id := a.ID
	db.OnRollback(ctx, func() {
		r.mu.Lock()
		delete(r.items, id)
		r.mu.Unlock()
	})
	return nil
}

func (r *appointmentRepoMemory) GetByID(_ context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id)
	}
	return &a, nil
}

func (r *appointmentRepoMemory) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return apperr.NotFound("appointment", id)
	}
	if a.Status != from {
		return fmt.Errorf("appointment %d is %s: %w", id, a.Status, apperr.ErrInvalidState)
	}
	before := a.Status
	a.Status = to
	r.items[id] = a

	db.OnRollback(ctx, func() {
		r.mu.Lock()
		if cur, ok := r.items[id]; ok {
			cur.Status = before
			r.items[id] = cur
		}
		r.mu.Unlock()
	})
	return nil
}

func (r *appointmentRepoMemory) ListByPsychologist(_ context.Context, psychologistID int64) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0)
	for _, a := range r.items {
		if a.PsychologistID == psychologistID {
			out = append(out, a)
		}
	}
	SortByDate(out)
	return out, nil
}

// SortByDate orders appointments by date ascending, undated last, ties by id.
func SortByDate(items []Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].Date, items[j].Date
		switch {
		case di == nil && dj == nil:
			return items[i].ID < items[j].ID
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.Before(*dj)
		}
		return items[i].ID < items[j].ID
	})
}
