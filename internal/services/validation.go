package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/employee-admin-api/internal/constants"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of input and converts failures into a
// validation *Error keyed by JSON field name.
func validateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, exists := fields[fe.Field()]; exists {
			continue
		}
		fields[fe.Field()] = describe(fe)
	}
	return NewValidationError(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return "is invalid"
	}
}

// passwordProblem returns a message when password breaks the password policy.
func passwordProblem(password string) string {
	if len(password) < constants.MinPasswordLength {
		return fmt.Sprintf("must be at least %d characters", constants.MinPasswordLength)
	}
	if len(password) > constants.MaxPasswordLength {
		return fmt.Sprintf("must be at most %d characters", constants.MaxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "must contain at least one letter and one digit"
	}
	return ""
}

// mergeFieldErrors adds extra messages to a validation failure produced by validateStruct.
func mergeFieldErrors(err error, extra map[string]string) error {
	if len(extra) == 0 {
		return err
	}
	fields := map[string]string{}
	if err != nil {
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != KindValidation {
			return err
		}
		for k, v := range svcErr.Fields {
			fields[k] = v
		}
	}
	for k, v := range extra {
		if _, exists := fields[k]; !exists {
			fields[k] = v
		}
	}
	return NewValidationError(fields)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
