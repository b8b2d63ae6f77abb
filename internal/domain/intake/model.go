package intake

import (
	"strings"
	"time"

	"github.com/lunysse/lunysse/internal/domain/roster"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

var statusAliases = map[string]Status{
	"pending":   StatusPending,
	"pendente":  StatusPending,
	"accepted":  StatusAccepted,
	"aceito":    StatusAccepted,
	"aceita":    StatusAccepted,
	"rejected":  StatusRejected,
	"rejeitado": StatusRejected,
	"rejeitada": StatusRejected,
}

func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

var urgencyAliases = map[string]Urgency{
	"low":    UrgencyLow,
	"baixa":  UrgencyLow,
	"medium": UrgencyMedium,
	"media":  UrgencyMedium,
	"média":  UrgencyMedium,
	"high":   UrgencyHigh,
	"alta":   UrgencyHigh,
}

func ParseUrgency(s string) (Urgency, bool) {
	u, ok := urgencyAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

// Request is a patient's ask to be taken on by a psychologist. Accepted and
// rejected are terminal.
type Request struct {
	ID                      int64      `json:"id"`
	PatientID               *int64     `json:"patient_id"`
	PatientName             string     `json:"patient_name"`
	PatientEmail            string     `json:"patient_email"`
	PatientPhone            string     `json:"patient_phone"`
	PreferredPsychologistID int64      `json:"preferred_psychologist_id"`
	Description             string     `json:"description"`
	Urgency                 Urgency    `json:"urgency"`
	Status                  Status     `json:"status"`
	ResolutionNote          string     `json:"resolution_note"`
	PreferredDates          []string   `json:"preferred_dates"`
	PreferredTimes          []string   `json:"preferred_times"`
	CreatedAt               time.Time  `json:"created_at"`
	ResolvedAt              *time.Time `json:"resolved_at"`
}

func (r *Request) IsPending() bool { return r.Status == StatusPending }

// SubmitInput is the createRequest payload. The psychologist may be sent as
// "preferred_psychologist" or "preferred_psychologist_id".
type SubmitInput struct {
	PatientID               *int64   `json:"patient_id"`
	PatientName             string   `json:"patient_name"`
	PatientEmail            string   `json:"patient_email"`
	PatientPhone            string   `json:"patient_phone"`
	PreferredPsychologist   int64    `json:"preferred_psychologist"`
	PreferredPsychologistID int64    `json:"preferred_psychologist_id"`
	Description             string   `json:"description"`
	Urgency                 string   `json:"urgency"`
	PreferredDates          []string `json:"preferred_dates"`
	PreferredTimes          []string `json:"preferred_times"`
}

func (in SubmitInput) psychologistID() int64 {
	if in.PreferredPsychologistID != 0 {
		return in.PreferredPsychologistID
	}
	return in.PreferredPsychologist
}

// ListFilter selects requests; zero fields match everything.
type ListFilter struct {
	PsychologistID int64
	PatientID      int64
	Status         Status
}

type AcceptResult struct {
	Patient *roster.Patient `json:"patient"`
	Request *Request        `json:"request"`
}

const (
	AcceptNote = "Patient accepted and added to the roster"
	RejectNote = "Request rejected by the psychologist"
)

// Placeholder profile for patients created from a request, which carries no
// birth date.
var (
	DefaultPatientAge       = 30
	DefaultPatientBirthDate = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
)
