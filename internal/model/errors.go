package model

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError names one violated constraint on one field.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

// ValidationError reports every field that failed validation, so the
// caller sees the full set of violations in one round trip.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s (%s)", f.Field, f.Constraint)
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// asValidationError converts a go-playground/validator error into the
// domain taxonomy.
func asValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		constraint := fe.Tag()
		if fe.Param() != "" {
			constraint += "=" + fe.Param()
		}
		ve.Fields = append(ve.Fields, FieldError{Field: fe.Field(), Constraint: constraint})
	}
	return ve
}
