package intake

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id int64) (*Request, error)
	// GetForUpdate loads the request and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Request, error)
	// List orders by created_at, then id.
	List(ctx context.Context, f ListFilter) ([]Request, error)
	// Resolve moves a pending request to status. It fails with
	// ErrInvalidState when the request is no longer pending.
	Resolve(ctx context.Context, id int64, status Status, note string, at time.Time) (*Request, error)
}
