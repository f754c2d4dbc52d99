package task

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is the sentinel every NotFoundError unwraps to.
var ErrNotFound = errors.New("task not found")

// NotFoundError reports a task that is missing or hidden from the caller.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", ErrNotFound.Error(), e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// IsNotFound reports whether err denotes a missing or hidden task.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidationError reports a malformed submission.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid task: %s", e.Reason)
	}
	return fmt.Sprintf("invalid task: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
