// Package events publishes request lifecycle notifications to the message
// broker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeRequestAccepted = "request.accepted"
	TypeRequestRejected = "request.rejected"
)

// RequestResolved is the body of request.accepted and request.rejected.
type RequestResolved struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	RequestID      int64     `json:"request_id"`
	PsychologistID int64     `json:"psychologist_id"`
	PatientID      *int64    `json:"patient_id,omitempty"`
	Note           string    `json:"note"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewRequestResolved stamps a new event id and time.
func NewRequestResolved(typ string, requestID, psychologistID int64, patientID *int64, note string) RequestResolved {
	return RequestResolved{
		ID:             uuid.NewString(),
		Type:           typ,
		RequestID:      requestID,
		PsychologistID: psychologistID,
		PatientID:      patientID,
		Note:           note,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	PublishRequestResolved(ctx context.Context, evt RequestResolved) error
}

// Noop drops every event. Used when AMQP_URL is not configured.
type Noop struct{}

func (Noop) PublishRequestResolved(context.Context, RequestResolved) error { return nil }
