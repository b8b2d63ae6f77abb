// Package inflight tracks request ids whose accept or reject is currently
// running so a second submission can be refused early. It is a debounce:
// at-most-once resolution is enforced by the store transaction.
package inflight

import (
	"context"
	"sync"
)

type Guard interface {
	// Acquire marks key as in flight. It returns false when the key is
	// already held.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Local is an in-process Guard.
type Local struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewLocal() *Local {
	return &Local{keys: make(map[string]struct{})}
}

func (l *Local) Acquire(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.keys[key]; held {
		return false, nil
	}
	l.keys[key] = struct{}{}
	return true, nil
}

func (l *Local) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.keys, key)
	l.mu.Unlock()
	return nil
}
