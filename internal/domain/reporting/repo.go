package reporting

import "context"

type AlertRepository interface {
	Create(ctx context.Context, a *RiskAlert) error
	// ListByPsychologist returns alerts newest first.
	ListByPsychologist(ctx context.Context, psychologistID int64) ([]RiskAlert, error)
}
