// Package reporting derives the KPI report of a psychologist and keeps the
// risk-alert feed shown on it.
package reporting

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/domain/scheduling"
)

const DefaultWindowMonths = 6

type Options struct {
	WindowMonths int
}

type Input struct {
	Appointments []scheduling.Appointment
	Patients     []roster.Patient
	Alerts       []RiskAlert
}

// isSession reports whether a counts as a session held or planned. Cancelled
// appointments never do.
func isSession(a scheduling.Appointment) bool {
	return a.Status == scheduling.StatusCompleted || a.Status == scheduling.StatusScheduled
}

// Build computes the report for psychologistID. Months are calendar months in
// now's location.
func Build(psychologistID int64, in Input, now time.Time, opts Options) *Report {
	window := opts.WindowMonths
	if window <= 0 {
		window = DefaultWindowMonths
	}

	own := lo.Filter(in.Appointments, func(a scheduling.Appointment, _ int) bool {
		return a.PsychologistID == psychologistID
	})
	byStatus := lo.CountValuesBy(own, func(a scheduling.Appointment) scheduling.Status { return a.Status })
	completed := byStatus[scheduling.StatusCompleted]
	cancelled := byStatus[scheduling.StatusCancelled]

	stats := Stats{
		ActivePatients: lo.CountBy(in.Patients, func(p roster.Patient) bool {
			return p.PsychologistID == psychologistID && p.Status.IsActive()
		}),
		TotalSessions:  lo.CountBy(own, isSession),
		AttendanceRate: attendanceRate(completed, cancelled),
	}

	statusData := make([]StatusCount, 0, len(scheduling.Statuses))
	for _, st := range scheduling.Statuses {
		if n := byStatus[st]; n > 0 {
			statusData = append(statusData, StatusCount{Name: string(st), Value: n})
		}
	}

	alerts := SortAlerts(lo.Filter(in.Alerts, func(a RiskAlert, _ int) bool {
		return a.PsychologistID == psychologistID
	}))
	stats.RiskAlerts = len(alerts)

	return &Report{
		Stats:         stats,
		FrequencyData: frequency(own, now, window),
		StatusData:    statusData,
		RiskAlerts:    alerts,
		HasNoData:     stats.ActivePatients == 0 && stats.TotalSessions == 0,
		GeneratedAt:   now,
	}
}

// attendanceRate is completed / (completed + cancelled) as a percentage with
// one decimal.
func attendanceRate(completed, cancelled int) float64 {
	total := completed + cancelled
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)*1000/float64(total)) / 10
}

// frequency counts sessions per month over the window months ending at now,
// oldest first. Empty months are kept with a zero count.
func frequency(appointments []scheduling.Appointment, now time.Time, window int) []MonthCount {
	loc := now.Location()
	first := time.Date(now.Year(), now.Month()-time.Month(window-1), 1, 0, 0, 0, 0, loc)

	series := make([]MonthCount, window)
	index := make(map[string]int, window)
	for i := range series {
		label := first.AddDate(0, i, 0).Format("2006-01")
		series[i] = MonthCount{Month: label}
		index[label] = i
	}

	for _, a := range appointments {
		if a.Date == nil || !isSession(a) {
			continue
		}
		if i, ok := index[a.Date.In(loc).Format("2006-01")]; ok {
			series[i].Sessions++
		}
	}
	return series
}

// SortAlerts orders alerts by risk, highest first, then newest first.
func SortAlerts(alerts []RiskAlert) []RiskAlert {
	sort.SliceStable(alerts, func(i, j int) bool {
		if ri, rj := alerts[i].Risk.rank(), alerts[j].Risk.rank(); ri != rj {
			return ri > rj
		}
		if !alerts[i].Date.Equal(alerts[j].Date) {
			return alerts[i].Date.After(alerts[j].Date)
		}
		return alerts[i].ID > alerts[j].ID
	})
	return alerts
}
