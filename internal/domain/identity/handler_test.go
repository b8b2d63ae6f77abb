package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lunysse/lunysse/internal/platform/auth"
)

func postJSON(target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	h := NewHandler(newTestService())

	c, rec := postJSON("/auth/register", `{"name":"Ana","email":"ana@x.com","password":"Segura#2024","phone":"11987654321","role":"psychologist","specialty":"TCC","crp":"06123456"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("password hash must not be serialized: %s", rec.Body.String())
	}

	c, rec = postJSON("/auth/login", `{"email":"ana@x.com","password":"Segura#2024"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Token == "" || res.User == nil || res.User.Role != auth.RolePsychologist {
		t.Errorf("unexpected login response %+v", res)
	}

	c, _ = postJSON("/auth/login", `{"email":"ana@x.com","password":"nope"}`)
	err := h.Login(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_RegisterValidation(t *testing.T) {
	h := NewHandler(newTestService())
	c, _ := postJSON("/auth/register", `{"name":"Ana","email":"ana@x.com","password":"weak","phone":"11987654321","role":"patient"}`)
	err := h.Register(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Me(t *testing.T) {
	svc := newTestService()
	h := NewHandler(svc)
	reg := psychologistRegistration("ana@x.com")
	u, _ := svc.Register(context.Background(), reg)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.WithSession(req.Context(), auth.Session{UserID: u.ID, Role: u.Role}))
	rec := httptest.NewRecorder()
	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"email":"ana@x.com"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
