package router

import (
	"errors"
	"net/http"

	"github.com/graffiticode/graffiticode/engine/core"
	"github.com/graffiticode/graffiticode/engine/task"
	"github.com/graffiticode/graffiticode/engine/taskid"
)

// Error codes
const (
	ErrInternalCode    = "INTERNAL_ERROR"
	ErrBadRequestCode  = "BAD_REQUEST"
	ErrNotFoundCode    = "NOT_FOUND"
	ErrValidationCode  = "VALIDATION_FAILED"
	ErrPayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrRateLimitedCode = "RATE_LIMITED"
)

// ProblemFromError maps a DAO error onto its problem document.
// Unclassified errors become a 500 without leaking their text.
func ProblemFromError(err error) *core.Problem {
	var decodeErr *taskid.DecodeIDError
	var validationErr *task.ValidationError
	var notFoundErr *task.NotFoundError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &decodeErr):
		return &core.Problem{
			Status: decodeErr.StatusCode(),
			Detail: decodeErr.Error(),
			Extras: map[string]any{"code": decodeErr.Code()},
		}
	case errors.As(err, &validationErr):
		return &core.Problem{
			Status: validationErr.StatusCode(),
			Detail: validationErr.Error(),
			Extras: map[string]any{"code": ErrValidationCode},
		}
	case errors.As(err, &notFoundErr), errors.Is(err, task.ErrNotFound):
		return &core.Problem{
			Status: http.StatusNotFound,
			Detail: "task not found",
			Extras: map[string]any{"code": ErrNotFoundCode},
		}
	case errors.As(err, &tooLarge):
		return &core.Problem{
			Status: http.StatusRequestEntityTooLarge,
			Detail: tooLarge.Error(),
			Extras: map[string]any{"code": ErrPayloadTooLarge},
		}
	case errors.Is(err, taskid.ErrEmptyRefs):
		return &core.Problem{
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Extras: map[string]any{"code": ErrBadRequestCode},
		}
	default:
		return &core.Problem{
			Status: http.StatusInternalServerError,
			Detail: "internal server error",
			Extras: map[string]any{"code": ErrInternalCode},
		}
	}
}
