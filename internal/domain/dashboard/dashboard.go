// Package dashboard derives the psychologist's dashboard from appointments,
// patients and requests. Build is pure; Service loads a snapshot and calls it.
package dashboard

import (
	"time"

	"github.com/samber/lo"

	"github.com/lunysse/lunysse/internal/domain/intake"
	"github.com/lunysse/lunysse/internal/domain/roster"
	"github.com/lunysse/lunysse/internal/domain/scheduling"
)

const DefaultUpcomingLimit = 5

type Options struct {
	UpcomingLimit int
}

type View struct {
	TodayAppointments    []scheduling.Appointment `json:"today_appointments"`
	CompletedCount       int                      `json:"completed_count"`
	PendingRequestCount  int                      `json:"pending_request_count"`
	UpcomingAppointments []scheduling.Appointment `json:"upcoming_appointments"`
	IsNewPsychologist    bool                     `json:"is_new_psychologist"`
	TotalPatients        int                      `json:"total_patients"`
	GeneratedAt          time.Time                `json:"generated_at"`
}

// Build computes the view for psychologistID. Appointments must already be
// normalized; those without a date are left out of the today and upcoming
// lists. Calendar days are compared in now's location.
func Build(psychologistID int64, appointments []scheduling.Appointment, patients []roster.Patient, requests []intake.Request, now time.Time, opts Options) *View {
	limit := opts.UpcomingLimit
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}

	own := lo.Filter(appointments, func(a scheduling.Appointment, _ int) bool {
		return a.PsychologistID == psychologistID
	})
	scheduled := lo.Filter(own, func(a scheduling.Appointment, _ int) bool {
		return a.Status == scheduling.StatusScheduled && a.Date != nil
	})

	today := lo.Filter(scheduled, func(a scheduling.Appointment, _ int) bool {
		return sameDay(a.Date.In(now.Location()), now)
	})
	scheduling.SortByDate(today)

	upcoming := lo.Filter(scheduled, func(a scheduling.Appointment, _ int) bool {
		return !a.Date.Before(now)
	})
	scheduling.SortByDate(upcoming)
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}

	return &View{
		TodayAppointments: today,
		CompletedCount: lo.CountBy(own, func(a scheduling.Appointment) bool {
			return a.Status == scheduling.StatusCompleted
		}),
		PendingRequestCount: lo.CountBy(requests, func(r intake.Request) bool {
			return r.IsPending() && r.PreferredPsychologistID == psychologistID
		}),
		UpcomingAppointments: upcoming,
		IsNewPsychologist:    len(patients) == 0 && len(appointments) == 0 && len(requests) == 0,
		TotalPatients: lo.CountBy(patients, func(p roster.Patient) bool {
			return p.PsychologistID == psychologistID
		}),
		GeneratedAt: now,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
