package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration values using go-playground/validator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterValidation("history_window", validateHistoryWindow)
	return &Validator{validate: v}
}

// Validate checks a complete configuration. It runs before a run starts;
// a config that passes never fails validation mid-run.
func (v *Validator) Validate(config *Config) error {
	if err := v.validate.Struct(config); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				return ValidationError{
					Field:   e.Field(),
					Message: fmt.Sprintf("validation failed on tag '%s' with value '%v'", e.Tag(), e.Value()),
					Value:   e.Value(),
				}
			}
		}
		return err
	}
	return nil
}

// validateHistoryWindow accepts any non-negative pair count, or -1 for an
// unbounded history.
func validateHistoryWindow(fl validator.FieldLevel) bool {
	return fl.Field().Int() >= -1
}
