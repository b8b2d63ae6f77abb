package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const sessionKey contextKey = "session"

// Roles carried in tokens.
const (
	RolePatient      = "patient"
	RolePsychologist = "psychologist"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
}

// Session is the authenticated caller, resolved once per request.
type Session struct {
	UserID int64
	Role   string
	Name   string
}

func (s Session) IsPsychologist() bool { return s.Role == RolePsychologist }

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// JWTMiddleware verifies the bearer token and stores the Session on the
// request context. Only HS256 tokens signed with cfg.SigningKey are accepted.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			// browsers cannot set headers on a WebSocket handshake
			if authHeader == "" && c.IsWebSocket() {
				if token := c.QueryParam("access_token"); token != "" {
					authHeader = "Bearer " + token
				}
			}
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid || claims.UserID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			s := Session{UserID: claims.UserID, Role: claims.Role, Name: claims.Name}
			c.Set("user_id", s.UserID)
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), s)))

			return next(c)
		}
	}
}
