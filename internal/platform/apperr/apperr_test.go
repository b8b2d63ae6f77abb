package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("description is required"), http.StatusBadRequest},
		{"not found", NotFound("request", 7), http.StatusNotFound},
		{"invalid state", fmt.Errorf("accept: %w", ErrInvalidState), http.StatusConflict},
		{"duplicate", fmt.Errorf("patient: %w", ErrDuplicate), http.StatusConflict},
		{"in flight", ErrInFlight, http.StatusConflict},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"transport", Transport("list patients", errors.New("dial tcp: refused")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.err); got != tc.want {
				t.Errorf("Status() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTransport_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transport("load snapshot", cause)
	if !errors.Is(err, ErrTransport) {
		t.Error("expected ErrTransport")
	}
	if !errors.Is(err, cause) {
		t.Error("expected original cause to remain inspectable")
	}
	if Transport("noop", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestHTTP_HidesTransportDetails(t *testing.T) {
	he := HTTP(Transport("list", errors.New("password=secret host=db")))
	if he.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", he.Code)
	}
	if msg, _ := he.Message.(string); strings.Contains(msg, "secret") {
		t.Errorf("transport details leaked: %q", msg)
	}
}

func TestHTTP_KeepsValidationMessage(t *testing.T) {
	he := HTTP(Validation("urgency %q is not allowed", "extreme"))
	msg, _ := he.Message.(string)
	if !strings.Contains(msg, "extreme") {
		t.Errorf("expected validation message to be kept, got %q", msg)
	}
}

func TestIsDomain(t *testing.T) {
	if !IsDomain(NotFound("patient", 1)) || !IsDomain(fmt.Errorf("x: %w", ErrInFlight)) {
		t.Error("expected domain errors to be recognised")
	}
	if IsDomain(Transport("list", errors.New("timeout"))) || IsDomain(errors.New("boom")) {
		t.Error("transport and unknown errors are not domain errors")
	}
}
