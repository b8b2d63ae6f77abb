package identity

import "context"

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type PsychologistRepository interface {
	// Create stores the profile of an existing user; p.ID is the user id.
	Create(ctx context.Context, p *Psychologist) error
	GetByID(ctx context.Context, id int64) (*Psychologist, error)
	// List orders by name, then id.
	List(ctx context.Context) ([]Psychologist, error)
}
