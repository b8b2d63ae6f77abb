package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lunysse/lunysse/internal/platform/apperr"
)

const uniqueViolation = "23505"

// Classify maps a pgx error onto the apperr taxonomy: no rows becomes
// ErrNotFound, a unique violation ErrDuplicate, anything else ErrTransport.
func Classify(err error, entity string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", entity, apperr.ErrDuplicate)
	}
	return apperr.Transport(entity, err)
}
