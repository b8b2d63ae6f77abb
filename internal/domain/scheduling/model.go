package scheduling

import (
	"strings"
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists the appointment statuses in display order.
var Statuses = []Status{StatusScheduled, StatusCompleted, StatusCancelled}

var statusAliases = map[string]Status{
	"scheduled": StatusScheduled,
	"agendado":  StatusScheduled,
	"completed": StatusCompleted,
	"concluido": StatusCompleted,
	"concluído": StatusCompleted,
	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
	"cancelado": StatusCancelled,
}

// ParseStatus accepts the canonical values and the Portuguese ones older
// clients send, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// Appointment is the canonical appointment every consumer works with. Date is
// nil when the producer sent no usable date.
type Appointment struct {
	ID              int64      `json:"id"`
	PatientID       int64      `json:"patient_id"`
	PsychologistID  int64      `json:"psychologist_id"`
	Date            *time.Time `json:"date"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          Status     `json:"status"`
	Description     string     `json:"description"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewAppointment is the body of POST /appointments.
type NewAppointment struct {
	PatientID       int64      `json:"patient_id"`
	Date            *time.Time `json:"date"`
	DurationMinutes int        `json:"duration_minutes"`
	Description     string     `json:"description"`
	Notes           string     `json:"notes"`
}

const DefaultDurationMinutes = 50
