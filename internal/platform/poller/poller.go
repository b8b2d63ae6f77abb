// Package poller runs a load function on a fixed interval and on demand,
// delivering each result wholesale. Runs may overlap; a result is dropped when
// a newer run has already delivered, so consumers never go back in time.
package poller

import (
	"context"
	"sync"
	"time"
)

type Poller[T any] struct {
	interval time.Duration
	load     func(ctx context.Context) (T, error)
	deliver  func(T)
	onError  func(error)

	trigger chan struct{}

	mu        sync.Mutex
	issued    uint64
	delivered uint64
	stopped   bool

	cancel context.CancelFunc
	loop   chan struct{}
	runs   sync.WaitGroup
}

// New creates a poller. deliver and onError are called with the poller's lock
// held and must not call Stop.
func New[T any](interval time.Duration, load func(ctx context.Context) (T, error), deliver func(T), onError func(error)) *Poller[T] {
	if onError == nil {
		onError = func(error) {}
	}
	return &Poller[T]{
		interval: interval,
		load:     load,
		deliver:  deliver,
		onError:  onError,
		trigger:  make(chan struct{}, 1),
	}
}

// Start runs load immediately and then every interval until ctx is done or
// Stop is called. Only the first call has an effect, and none after Stop.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.stopped || p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	loop := make(chan struct{})
	p.cancel, p.loop = cancel, loop
	p.mu.Unlock()

	go func() {
		defer close(loop)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.spawn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.spawn(ctx)
			case <-p.trigger:
				p.spawn(ctx)
			}
		}
	}()
}

// Trigger requests an immediate run. Calls made while one is already queued
// are coalesced.
func (p *Poller[T]) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels outstanding runs and waits for them. Nothing is delivered
// after Stop returns.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel, loop := p.cancel, p.loop
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-loop
	p.runs.Wait()
}

func (p *Poller[T]) spawn(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.issued++
	seq := p.issued
	p.runs.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.runs.Done()
		v, err := p.load(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				p.onError(err)
			}
			return
		}
		if seq < p.delivered {
			return
		}
		p.delivered = seq
		p.deliver(v)
	}()
}
