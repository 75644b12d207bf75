package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email", "waitlist_email":
		return "Invalid email format"
	case "printascii":
		return "Value must contain only printable ASCII characters"
	case "datetime":
		return "Invalid timestamp format"
	case "url", "uri":
		return "Invalid URL format"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must not exceed %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	default:
		return "Invalid value"
	}
}

// fieldName prefers the json tag, then the form tag, then the Go field name.
func fieldName(structType reflect.Type, name string) string {
	if structType == nil {
		return name
	}

	field, ok := structType.FieldByName(name)
	if !ok {
		return name
	}

	for _, key := range []string{"json", "form"} {
		tag, _, _ := strings.Cut(field.Tag.Get(key), ",")
		if tag != "" && tag != "-" {
			return tag
		}
	}

	return name
}

// FormatValidationErrors turns binding errors into per-field messages keyed by the
// client-facing field names of model.
func FormatValidationErrors(err error, model interface{}) []ValidationErrorResponse {
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
	}

	out := make([]ValidationErrorResponse, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationErrorResponse{
			Field:   fieldName(structType, fe.StructField()),
			Message: messageFor(fe),
		})
	}

	return out
}
