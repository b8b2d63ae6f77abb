package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sony/gobreaker"
	"golang.org/x/crypto/bcrypt"

	"github.com/lunysse/lunysse/internal/platform/apperr"
	"github.com/lunysse/lunysse/internal/platform/auth"
	"github.com/lunysse/lunysse/internal/platform/breaker"
	"github.com/lunysse/lunysse/internal/platform/db"
)

// TokenIssuer signs session tokens. *auth.Signer implements it.
type TokenIssuer interface {
	Issue(sess auth.Session) (string, time.Time, error)
}

var errBadCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrUnauthorized)

type Service struct {
	users         UserRepository
	psychologists PsychologistRepository
	tx            db.Transactor
	tokens        TokenIssuer
	cb            *gobreaker.CircuitBreaker
	cost          int
}

func NewService(users UserRepository, psychologists PsychologistRepository, tx db.Transactor, tokens TokenIssuer, cb *gobreaker.CircuitBreaker) *Service {
	return &Service{
		users:         users,
		psychologists: psychologists,
		tx:            tx,
		tokens:        tokens,
		cb:            cb,
		cost:          bcrypt.DefaultCost,
	}
}

// Register creates a user and, for the psychologist role, its profile in the
// same transaction.
func (s *Service) Register(ctx context.Context, in Registration) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	phone := digitsOnly(in.Phone)

	if err := validateRegistration(in, phone); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{Name: in.Name, Email: in.Email, Phone: phone, Role: in.Role, PasswordHash: string(hash)}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := breaker.Do(s.cb, "create user", func() error { return s.users.Create(ctx, u) }); err != nil {
			return err
		}
		if u.Role != auth.RolePsychologist {
			return nil
		}
		return breaker.Do(s.cb, "create psychologist", func() error {
			return s.psychologists.Create(ctx, &Psychologist{
				ID:        u.ID,
				Specialty: strings.TrimSpace(in.Specialty),
				CRP:       strings.TrimSpace(in.CRP),
				Bio:       strings.TrimSpace(in.Bio),
				PhotoRef:  strings.TrimSpace(in.PhotoRef),
			})
		})
	})
	if errors.Is(err, apperr.ErrDuplicate) {
		return nil, fmt.Errorf("email %s is already registered: %w", in.Email, apperr.ErrDuplicate)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func validateRegistration(in Registration, phone string) error {
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	if len(phone) < 10 || len(phone) > 11 {
		return apperr.Validation("phone must have 10 or 11 digits")
	}
	switch in.Role {
	case auth.RolePatient:
	case auth.RolePsychologist:
		if len(digitsOnly(in.CRP)) < 6 {
			return apperr.Validation("crp must have at least 6 digits")
		}
		if strings.TrimSpace(in.Specialty) == "" {
			return apperr.Validation("specialty is required")
		}
	default:
		return apperr.Validation("role must be %s or %s", auth.RolePatient, auth.RolePsychologist)
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return apperr.Validation("password must have at least 8 characters")
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return apperr.Validation("password needs upper and lower case letters, a digit and a symbol")
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Login checks the credentials and issues a session token. Unknown email and
// wrong password fail the same way.
func (s *Service) Login(ctx context.Context, c Credentials) (*LoginResult, error) {
	u, err := breaker.Call(s.cb, "get user", func() (*User, error) {
		return s.users.GetByEmail(ctx, strings.TrimSpace(c.Email))
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)) != nil {
		return nil, errBadCredentials
	}

	token, expires, err := s.tokens.Issue(auth.Session{UserID: u.ID, Role: u.Role, Name: u.Name})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expires, User: u}, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return breaker.Call(s.cb, "get user", func() (*User, error) {
		return s.users.GetByID(ctx, id)
	})
}

func (s *Service) ListPsychologists(ctx context.Context) ([]Psychologist, error) {
	return breaker.Call(s.cb, "list psychologists", func() ([]Psychologist, error) {
		return s.psychologists.List(ctx)
	})
}

func (s *Service) GetPsychologist(ctx context.Context, id int64) (*Psychologist, error) {
	return breaker.Call(s.cb, "get psychologist", func() (*Psychologist, error) {
		return s.psychologists.GetByID(ctx, id)
	})
}
