package taskid

import (
	"errors"
	"fmt"
	"net/http"
)

// DecodeIDErrorCode is the application error code carried by DecodeIDError.
const DecodeIDErrorCode = 4001

// DecodeIDError reports an identifier that cannot be decoded.
type DecodeIDError struct {
	ID     string
	Reason string
	Err    error
}

// NewDecodeIDError builds a DecodeIDError for backends with their own reference layout.
func NewDecodeIDError(id, reason string, err error) *DecodeIDError {
	return &DecodeIDError{ID: id, Reason: reason, Err: err}
}

func (e *DecodeIDError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid id %q: %s: %v", e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid id %q: %s", e.ID, e.Reason)
}

func (e *DecodeIDError) Unwrap() error {
	return e.Err
}

// Code returns the application error code.
func (e *DecodeIDError) Code() int {
	return DecodeIDErrorCode
}

// StatusCode returns the HTTP status for the error.
func (e *DecodeIDError) StatusCode() int {
	return http.StatusBadRequest
}

// IsDecodeIDError reports whether err wraps a DecodeIDError.
func IsDecodeIDError(err error) bool {
	var target *DecodeIDError
	return errors.As(err, &target)
}
