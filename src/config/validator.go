package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration values using go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New()

	// Register custom validation functions
	v.RegisterValidation("provider", validateProvider)
	v.RegisterValidation("driver", validateDriver)
	v.RegisterValidation("relevance_policy", validateRelevancePolicy)
	v.RegisterValidation("log_format", validateLogFormat)

	return &Validator{
		validate: v,
	}
}

// Validate validates a complete configuration
func (v *Validator) Validate(config *Config) error {
	// Set default version if empty
	if config.Version == "" {
		config.Version = "1.0"
	}

	if err := v.validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			e := validationErrors[0]
			return ValidationError{
				Field:   e.Namespace(),
				Message: fmt.Sprintf("validation failed on tag '%s' with value '%v'", e.Tag(), e.Value()),
				Value:   e.Value(),
			}
		}
		return err
	}

	if config.Storage.Driver != "" && config.Storage.DSN == "" {
		return ValidationError{
			Field:   "Config.Storage.DSN",
			Message: fmt.Sprintf("driver %s requires a dsn", config.Storage.Driver),
		}
	}

	return nil
}

// validateProvider validates generation provider values
func validateProvider(fl validator.FieldLevel) bool {
	return contains([]string{"google", "openrouter"}, fl.Field().String())
}

// validateDriver validates record store driver values
func validateDriver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // record store disabled
	}
	return contains([]string{"sqlite", "postgres", "mysql"}, value)
}

// validateRelevancePolicy validates knowledge policy names
func validateRelevancePolicy(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return contains([]string{"all", "none", "keyword", "semantic"}, value)
}

// validateLogFormat validates log format values
func validateLogFormat(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return contains([]string{"json", "text"}, value)
}

// contains checks if a string is in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
