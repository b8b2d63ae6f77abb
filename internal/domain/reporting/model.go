package reporting

import (
	"strings"
	"time"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskAliases = map[string]RiskLevel{
	"low":    RiskLow,
	"baixo":  RiskLow,
	"baixa":  RiskLow,
	"medium": RiskMedium,
	"medio":  RiskMedium,
	"médio":  RiskMedium,
	"media":  RiskMedium,
	"média":  RiskMedium,
	"high":   RiskHigh,
	"alto":   RiskHigh,
	"alta":   RiskHigh,
}

func ParseRiskLevel(s string) (RiskLevel, bool) {
	r, ok := riskAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

func (r RiskLevel) rank() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

// RiskAlert flags a patient for attention. Alerts are produced by an outside
// classification policy; this package stores and orders them.
type RiskAlert struct {
	ID             int64     `json:"id"`
	PatientID      int64     `json:"patient_id"`
	PatientName    string    `json:"patient"`
	PsychologistID int64     `json:"psychologist_id"`
	Reason         string    `json:"reason"`
	Risk           RiskLevel `json:"risk"`
	Date           time.Time `json:"date"`
}

// NewAlert is the body of POST /risk-alerts.
type NewAlert struct {
	PatientID int64      `json:"patient_id"`
	Reason    string     `json:"reason"`
	Risk      string     `json:"risk"`
	Date      *time.Time `json:"date"`
}

type Stats struct {
	ActivePatients int     `json:"active_patients"`
	TotalSessions  int     `json:"total_sessions"`
	AttendanceRate float64 `json:"attendance_rate"`
	RiskAlerts     int     `json:"risk_alerts"`
}

type MonthCount struct {
	Month    string `json:"month"`
	Sessions int    `json:"sessions"`
}

type StatusCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type Report struct {
	Stats         Stats         `json:"stats"`
	FrequencyData []MonthCount  `json:"frequency_data"`
	StatusData    []StatusCount `json:"status_data"`
	RiskAlerts    []RiskAlert   `json:"risk_alerts"`
	HasNoData     bool          `json:"has_no_data"`
	GeneratedAt   time.Time     `json:"generated_at"`
}
