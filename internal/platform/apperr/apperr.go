// Package apperr defines the error taxonomy shared by the domain services and
// its mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrDuplicate    = errors.New("duplicate entity")
	ErrValidation   = errors.New("validation failed")
	ErrTransport    = errors.New("entity store unavailable")
	ErrInFlight     = errors.New("request is already being processed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Validation returns an ErrValidation carrying a field-level message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// Transport wraps a store or broker failure as ErrTransport while keeping the
// cause inspectable with errors.Is / errors.As.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// IsDomain reports whether err carries one of the domain sentinels, meaning
// the store answered and the caller did something the rules forbid.
func IsDomain(err error) bool {
	for _, target := range []error{ErrNotFound, ErrInvalidState, ErrDuplicate, ErrValidation, ErrInFlight, ErrUnauthorized} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Status maps an error to the HTTP status code the handlers respond with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrDuplicate), errors.Is(err, ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts err into an *echo.HTTPError. Transport and unknown failures get
// a generic message so store internals never leak to clients.
func HTTP(err error) *echo.HTTPError {
	code := Status(err)
	msg := err.Error()
	switch code {
	case http.StatusServiceUnavailable:
		msg = "service temporarily unavailable, please retry"
	case http.StatusInternalServerError:
		msg = "internal server error"
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}
