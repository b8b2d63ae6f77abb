package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer issues HS256 tokens that JWTMiddleware accepts.
type Signer struct {
	cfg JWTConfig
	ttl time.Duration
	now func() time.Time
}

func NewSigner(cfg JWTConfig, ttl time.Duration) *Signer {
	return &Signer{cfg: cfg, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for s and its expiry.
func (s *Signer) Issue(sess Session) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(sess.UserID, 10),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID: sess.UserID,
		Role:   sess.Role,
		Name:   sess.Name,
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}
