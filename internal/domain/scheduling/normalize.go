package scheduling

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexID decodes an id sent either as a JSON number or as a numeric string.
// Anything else decodes to 0.
type FlexID int64

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexID(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexID(v)
	return nil
}

// RawAppointment is an appointment as producers send it: snake_case or
// camelCase identity fields, the date under "date" or "appointment_date", an
// optional separate "time" and a Portuguese or English status.
type RawAppointment struct {
	ID                  FlexID `json:"id"`
	PatientID           FlexID `json:"patient_id"`
	PatientIDCamel      FlexID `json:"patientId"`
	PsychologistID      FlexID `json:"psychologist_id"`
	PsychologistIDCamel FlexID `json:"psychologistId"`
	Date                string `json:"date"`
	AppointmentDate     string `json:"appointment_date"`
	Time                string `json:"time"`
	Duration            int    `json:"duration"`
	DurationMinutes     int    `json:"duration_minutes"`
	Status              string `json:"status"`
	Description         string `json:"description"`
	Notes               string `json:"notes"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDate parses the date formats producers use. Values without a zone are
// read in loc; a bare "2006-01-02" is midnight in loc. clock, when set as
// "15:04", is applied to date-only values. Blank or unparseable input yields
// nil.
func ParseDate(value, clock string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if d, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		if c, err := time.Parse("15:04", strings.TrimSpace(clock)); err == nil {
			d = d.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
		}
		return &d
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t
		}
	}
	return nil
}

// Normalize maps a raw appointment onto the canonical shape. snake_case fields
// win over camelCase ones; "date" wins over "appointment_date". An unknown
// status is kept lower-cased so it never matches a known bucket.
func Normalize(raw RawAppointment, loc *time.Location) Appointment {
	a := Appointment{
		ID:              int64(raw.ID),
		PatientID:       int64(raw.PatientID),
		PsychologistID:  int64(raw.PsychologistID),
		DurationMinutes: raw.DurationMinutes,
		Description:     raw.Description,
		Notes:           raw.Notes,
	}
	if a.PatientID == 0 {
		a.PatientID = int64(raw.PatientIDCamel)
	}
	if a.PsychologistID == 0 {
		a.PsychologistID = int64(raw.PsychologistIDCamel)
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = raw.Duration
	}

	date := raw.Date
	if strings.TrimSpace(date) == "" {
		date = raw.AppointmentDate
	}
	a.Date = ParseDate(date, raw.Time, loc)

	if st, ok := ParseStatus(raw.Status); ok {
		a.Status = st
	} else {
		a.Status = Status(strings.ToLower(strings.TrimSpace(raw.Status)))
	}
	return a
}

// NormalizeAll normalizes a batch.
func NormalizeAll(raws []RawAppointment, loc *time.Location) []Appointment {
	out := make([]Appointment, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r, loc))
	}
	return out
}
