// Package validation checks request input before it reaches the store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error describes the first invalid field of a request
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Struct validates s against its `validate` tags and returns an *Error for
// the first failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Message: message(fe)}
}

// ValidateEmail checks if an email address is present and well formed
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &Error{Field: "email", Message: "email is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return &Error{Field: "email", Message: "invalid email format"}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "email":
		return "invalid email format"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
