package config

import (
	"github.com/go-playground/validator/v10"
)

var storageDrivers = map[string]struct{}{
	"postgres": {},
	"sqlite":   {},
	"redis":    {},
}

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("storage_driver", validateStorageDriver)
}

func validateStorageDriver(fl validator.FieldLevel) bool {
	_, ok := storageDrivers[fl.Field().String()]
	return ok
}
