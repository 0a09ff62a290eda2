package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// ErrDepartmentHasManager is returned when deleting a department would leave
// its department manager without a department.
var ErrDepartmentHasManager = errors.New("department still has a department manager")

// DuplicateError reports a unique constraint violation on a named field.
type DuplicateError struct {
	Constraint string
	Field      string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// constraintFields maps unique index names to the user-facing field they guard.
var constraintFields = map[string]string{
	"users_username_key":           "username",
	"users_email_key":              "email",
	"users_department_manager_key": "department_id",
	"departments_name_key":         "name",
	"complaints_tracking_code_key": "tracking_code",
}

// AsDuplicate extracts a DuplicateError from err.
func AsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ConstraintName
		}
		return &DuplicateError{Constraint: pgErr.ConstraintName, Field: field}
	}
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation && pgErr.ConstraintName == "users_manager_department_chk" {
		return ErrDepartmentHasManager
	}
	return err
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() (int, int) {
	limit := p.Limit
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
