package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConflict means the statement lost a race with a concurrent writer
// (unique violation, serialization failure or deadlock). Callers may retry.
var ErrConflict = errors.New("conflict")

// ErrInvalidQuantity is returned by ledger operations called with quantity <= 0.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ErrLedgerBounds is returned when a ledger write would push remaining
// outside [0, total].
var ErrLedgerBounds = errors.New("availability out of bounds")

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// classify tags retryable Postgres errors with ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation, sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}
