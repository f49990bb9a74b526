package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the shared validator over a request DTO.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ClampString trims a free-form string input and caps its length; empty
// results collapse to nil so optional columns stay NULL.
func ClampString(value string, max int) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > max {
		trimmed = trimmed[:max]
	}
	return &trimmed
}
