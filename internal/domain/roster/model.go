package roster

import (
	"strings"
	"time"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusInTreatment Status = "in_treatment"
)

var statusAliases = map[string]Status{
	"active":        StatusActive,
	"ativo":         StatusActive,
	"inactive":      StatusInactive,
	"inativo":       StatusInactive,
	"in_treatment":  StatusInTreatment,
	"in treatment":  StatusInTreatment,
	"intreatment":   StatusInTreatment,
	"em tratamento": StatusInTreatment,
	"em_tratamento": StatusInTreatment,
}

func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// IsActive reports whether the patient counts as active on reports.
func (s Status) IsActive() bool {
	return s == StatusActive || s == StatusInTreatment
}

// Patient is a roster entry owned by one psychologist. It is distinct from
// the user account a patient logs in with.
type Patient struct {
	ID             int64      `json:"id"`
	PsychologistID int64      `json:"psychologist_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	BirthDate      *time.Time `json:"birth_date"`
	Age            int        `json:"age"`
	Status         Status     `json:"status"`
	SessionCount   int        `json:"session_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewPatient is the input of CreatePatient. Age is derived from BirthDate
// when not given.
type NewPatient struct {
	PsychologistID int64
	Name           string
	Email          string
	Phone          string
	BirthDate      *time.Time
	Age            *int
	Status         Status
}

// SameEmail compares emails the way the duplicate guard does: trimmed and
// case-insensitive.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
