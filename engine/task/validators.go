package task

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a submission before it reaches storage.
func Validate(t *Task, auth *Auth) error {
	if t == nil {
		return &ValidationError{Field: "task", Reason: "task is required"}
	}
	if err := getValidator().Struct(t); err != nil {
		return fieldError("task", err)
	}
	if auth != nil {
		if err := getValidator().Struct(auth); err != nil {
			return fieldError("auth", err)
		}
	}
	if _, err := json.Marshal(t.Code); err != nil {
		return &ValidationError{Field: "code", Reason: "code must be JSON-serializable", Err: err}
	}
	return nil
}

func fieldError(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:  prefix + "." + strings.ToLower(fe.Field()),
			Reason: "failed " + fe.Tag() + " constraint",
			Err:    err,
		}
	}
	return &ValidationError{Field: prefix, Reason: err.Error(), Err: err}
}
