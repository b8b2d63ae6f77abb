package roster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lunysse/lunysse/internal/platform/auth"
)

func newTestContext(e *echo.Echo, target string, psychologistID int64) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithSession(req.Context(), auth.Session{UserID: psychologistID, Role: auth.RolePsychologist}))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_ListPatients(t *testing.T) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	ctx := context.Background()
	svc.CreatePatient(ctx, NewPatient{PsychologistID: 7, Name: "Bruno", Email: "b@x.com"})
	svc.CreatePatient(ctx, NewPatient{PsychologistID: 7, Name: "Ana", Email: "a@x.com", Status: StatusInactive})
	svc.CreatePatient(ctx, NewPatient{PsychologistID: 8, Name: "Carla", Email: "c@x.com"})

	c, rec := newTestContext(e, "/patients", 7)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []Patient `json:"data"`
		Total int       `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || body.Data[0].Name != "Ana" {
		t.Errorf("expected psychologist 7's patients sorted by name, got %+v", body)
	}

	c, rec = newTestContext(e, "/patients?status=Ativo", 7)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 1 || body.Data[0].Name != "Bruno" {
		t.Errorf("expected only active patients, got %+v", body)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	p, _ := svc.CreatePatient(context.Background(), NewPatient{PsychologistID: 7, Name: "A", Email: "a@x.com"})

	c, _ := newTestContext(e, "/", 8)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(p.ID, 10))

	err := h.GetPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_GetPatient_BadID(t *testing.T) {
	h := NewHandler(newTestService())
	c, _ := newTestContext(echo.New(), "/", 7)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := h.GetPatient(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
