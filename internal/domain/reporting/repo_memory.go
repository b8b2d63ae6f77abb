package reporting

import (
	"context"
	"sort"
	"sync"
)

type alertRepoMemory struct {
	mu    sync.RWMutex
	seq   int64
	items []RiskAlert
}

func NewAlertRepoMemory() AlertRepository {
	return &alertRepoMemory{}
}

func (r *alertRepoMemory) Create(_ context.Context, a *RiskAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = r.seq
	r.items = append(r.items, *a)
	return nil
}

func (r *alertRepoMemory) ListByPsychologist(_ context.Context, psychologistID int64) ([]RiskAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RiskAlert, 0)
	for _, a := range r.items {
		if a.PsychologistID == psychologistID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
