package intake

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lunysse/lunysse/internal/platform/apperr"
)

// Metrics counts accept and reject attempts by outcome.
type Metrics struct {
	transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lunysse_request_transitions_total",
			Help: "Request accept/reject attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.transitions)
	return m
}

func (m *Metrics) observe(success string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(outcome(success, err)).Inc()
}

func outcome(success string, err error) string {
	switch {
	case err == nil:
		return success
	case errors.Is(err, apperr.ErrInFlight):
		return "in_flight"
	case errors.Is(err, apperr.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, apperr.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
