// Package breaker builds the circuit breakers that guard calls to the entity
// store and the message broker.
package breaker

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/lunysse/lunysse/internal/platform/apperr"
)

// Names of the breakers created by the server.
const (
	Store     = "entity-store"
	Publisher = "events-publisher"
)

// New creates a breaker that opens after 3 consecutive failures.
func New(name string, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	timeout := 30 * time.Second
	if name == Store {
		timeout = 10 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// a rule violation means the dependency answered
		IsSuccessful: func(err error) bool {
			return err == nil || apperr.IsDomain(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// IsOpen reports whether err was produced by a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Do runs fn through cb. A refused call is reported as apperr.ErrTransport;
// errors from fn are returned unchanged.
func Do(cb *gobreaker.CircuitBreaker, op string, fn func() error) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if IsOpen(err) {
		return apperr.Transport(op, err)
	}
	return err
}

// Call is Do for functions returning a value.
func Call[T any](cb *gobreaker.CircuitBreaker, op string, fn func() (T, error)) (T, error) {
	var out T
	err := Do(cb, op, func() error {
		v, err := fn()
		out = v
		return err
	})
	return out, err
}
