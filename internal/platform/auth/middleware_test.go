package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func testConfig() JWTConfig {
	return JWTConfig{Issuer: "lunysse", SigningKey: testSigningKey}
}

func runMiddleware(t *testing.T, header string, mw echo.MiddlewareFunc) (Session, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Session
	handler := func(c echo.Context) error {
		got, _ = SessionFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}
	err := mw(handler)(c)
	return got, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runMiddleware(t, "", JWTMiddleware(testConfig()))
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, tt.header, JWTMiddleware(testConfig()))
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_IssuedTokenRoundTrip(t *testing.T) {
	signer := NewSigner(testConfig(), time.Hour)
	token, expires, err := signer.Issue(Session{UserID: 42, Role: RolePsychologist, Name: "Dra. Ana"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Error("expected expiry in the future")
	}

	sess, err := runMiddleware(t, "Bearer "+token, JWTMiddleware(testConfig()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.UserID != 42 || sess.Role != RolePsychologist || sess.Name != "Dra. Ana" {
		t.Errorf("unexpected session %+v", sess)
	}
	if !sess.IsPsychologist() {
		t.Error("expected psychologist session")
	}
}

func TestJWTMiddleware_RejectsExpired(t *testing.T) {
	signer := NewSigner(testConfig(), time.Hour)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := signer.Issue(Session{UserID: 1, Role: RolePatient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = runMiddleware(t, "Bearer "+token, JWTMiddleware(testConfig()))
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_RejectsWrongKey(t *testing.T) {
	other := JWTConfig{Issuer: "lunysse", SigningKey: []byte("another-key")}
	token, _, err := NewSigner(other, time.Hour).Issue(Session{UserID: 1, Role: RolePatient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = runMiddleware(t, "Bearer "+token, JWTMiddleware(testConfig()))
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_RejectsWrongIssuer(t *testing.T) {
	other := JWTConfig{Issuer: "someone-else", SigningKey: testSigningKey}
	token, _, err := NewSigner(other, time.Hour).Issue(Session{UserID: 1, Role: RolePatient})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = runMiddleware(t, "Bearer "+token, JWTMiddleware(testConfig()))
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_RejectsMissingUserID(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "lunysse",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RolePatient,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = runMiddleware(t, "Bearer "+token, JWTMiddleware(testConfig()))
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	t.Run("no session", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		expectStatus(t, RequireRole(RolePsychologist)(handler)(c), http.StatusUnauthorized)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserID: 3, Role: RolePatient}))
		c := e.NewContext(req, httptest.NewRecorder())
		expectStatus(t, RequireRole(RolePsychologist)(handler)(c), http.StatusForbidden)
	})

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSession(req.Context(), Session{UserID: 3, Role: RolePatient}))
		c := e.NewContext(req, httptest.NewRecorder())
		if err := RequireRole(RolePsychologist, RolePatient)(handler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestJWTMiddleware_WebSocketQueryToken(t *testing.T) {
	token, _, err := NewSigner(testConfig(), time.Hour).Issue(Session{UserID: 5, Role: RolePsychologist})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/live?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	c := e.NewContext(req, httptest.NewRecorder())

	var got Session
	err = JWTMiddleware(testConfig())(func(c echo.Context) error {
		got, _ = SessionFromContext(c.Request().Context())
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != 5 {
		t.Errorf("expected session for user 5, got %+v", got)
	}

	plain := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients?access_token="+token, nil), httptest.NewRecorder())
	err = JWTMiddleware(testConfig())(func(c echo.Context) error { return nil })(plain)
	expectStatus(t, err, http.StatusUnauthorized)
}
