package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Common repository errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// translateDBError maps a Postgres unique-index conflict onto
// ErrDuplicate. The driver error stays in the chain so callers can read
// the violated constraint. Other errors pass through unchanged.
func translateDBError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}

// ConstraintName extracts the violated constraint from a duplicate error
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
