package identity

import (
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Psychologist is the public profile of a user with the psychologist role.
type Psychologist struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
	CRP       string `json:"crp"`
	Bio       string `json:"bio"`
	PhotoRef  string `json:"photo_ref"`
}

// Registration is the body of POST /auth/register. The psychologist fields
// are required only for that role.
type Registration struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Specialty string `json:"specialty"`
	CRP       string `json:"crp"`
	Bio       string `json:"bio"`
	PhotoRef  string `json:"photo_ref"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
