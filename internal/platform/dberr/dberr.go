// Package dberr provides a bridge between low-level relational-gateway
// errors and the Storage-kind [apperr.AppError].
package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
)

// ErrNotFound is a standard error returned when a queried row doesn't exist.
var ErrNotFound = apperr.NotFound("Resource")

// Wrap inspects a relational-gateway error and wraps it into a meaningful
// [apperr.AppError]. It hides internal query details from the client while
// classifying the error as a StorageError.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// action is retained for server-side logging at the call site; the
	// client-facing message never repeats it to avoid leaking query shape.
	return apperr.Storage(err)
}
