package identity

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

// memoryStore backs both repositories so psychologist profiles can join the
// user they extend.
type memoryStore struct {
	mu       sync.RWMutex
	seq      int64
	users    map[int64]User
	profiles map[int64]Psychologist
}

// NewMemoryRepos returns the in-memory development stores.
func NewMemoryRepos() (UserRepository, PsychologistRepository) {
	s := &memoryStore{users: make(map[int64]User), profiles: make(map[int64]Psychologist)}
	return &userRepoMemory{s}, &psychologistRepoMemory{s}
}

type userRepoMemory struct{ s *memoryStore }

func (r *userRepoMemory) Create(ctx context.Context, u *User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if normalizeEmail(existing.Email) == normalizeEmail(u.Email) {
			return fmt.Errorf("user %s: %w", u.Email, apperr.ErrDuplicate)
		}
	}
	r.s.seq++
	u.ID = r.s.seq
	u.CreatedAt = time.Now().UTC()
	r.s.users[u.ID] = *u

	id := u.ID
	db.OnRollback(ctx, func() {
		r.s.mu.Lock()
		delete(r.s.users, id)
		r.s.mu.Unlock()
	})
	return nil
}

func (r *userRepoMemory) GetByID(_ context.Context, id int64) (*User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	return &u, nil
}

func (r *userRepoMemory) GetByEmail(_ context.Context, email string) (*User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if normalizeEmail(u.Email) == normalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user", email)
}

type psychologistRepoMemory struct{ s *memoryStore }

func (r *psychologistRepoMemory) Create(ctx context.Context, p *Psychologist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[p.ID]; !ok {
		return apperr.NotFound("user", p.ID)
	}
	if _, ok := r.s.profiles[p.ID]; ok {
		return fmt.Errorf("psychologist %d: %w", p.ID, apperr.ErrDuplicate)
	}
	r.s.profiles[p.ID] = *p

	id := p.ID
	db.OnRollback(ctx, func() {
		r.s.mu.Lock()
		delete(r.s.profiles, id)
		r.s.mu.Unlock()
	})
	return nil
}

func (r *psychologistRepoMemory) GetByID(_ context.Context, id int64) (*Psychologist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, apperr.NotFound("psychologist", id)
	}
	return r.s.join(p), nil
}

func (r *psychologistRepoMemory) List(_ context.Context) ([]Psychologist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]Psychologist, 0, len(r.s.profiles))
	for _, p := range r.s.profiles {
		out = append(out, *r.s.join(p))
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

// join fills the user fields of a profile. Callers hold the lock.
func (s *memoryStore) join(p Psychologist) *Psychologist {
	u := s.users[p.ID]
	p.Name, p.Email, p.Phone = u.Name, u.Email, u.Phone
	return &p
}
