package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"ticketing/lib/apperrors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their json name so messages match the request body
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if comma := strings.Index(name, ","); comma != -1 {
			name = name[:comma]
		}
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct runs the `validate` tags of s and converts failures into a
// ValidationError with one message per field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.Validation(err.Error())
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = fieldMessage(fieldErr)
	}
	return apperrors.ValidationFields("Invalid request", fields)
}

func fieldMessage(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldErr.Param())
	case "dive":
		return fmt.Sprintf("%s contains an invalid value", field)
	default:
		return fmt.Sprintf("%s validation failed on '%s' tag", field, fieldErr.Tag())
	}
}

// DecodeAndValidate unmarshals a request body into dst and validates it
func DecodeAndValidate(body string, dst interface{}) error {
	if body == "" {
		return apperrors.Validation("Request body is required")
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return ValidateStruct(dst)
}
