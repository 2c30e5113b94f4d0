package errors

import (
	"fmt"
)

var (
	ErrNotFound            = fmt.Errorf("not found")
	ErrDuplicateEmail      = fmt.Errorf("duplicate email")
	// ErrConstraintViolation is a storage failure caused by a NOT NULL or
	// column length constraint.
	ErrConstraintViolation = fmt.Errorf("column constraint violated")
)

// NotFoundError is returned when no employee exists for the requested ID.
// It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No existe el empleado con el ID : %d", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds a NotFoundError for id.
func NotFound(id int64) error {
	return &NotFoundError{ID: id}
}
