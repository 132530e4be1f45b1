package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a credentials problem caught before any request is sent.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min":
		return fmt.Sprintf("%s is too short", e.Field)
	case "max":
		return fmt.Sprintf("%s is too long", e.Field)
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits", e.Field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", e.Field, e.Rule)
	}
}

type credentials struct {
	Username string `validate:"required,min=3,max=32,alphanum"`
	Password string `validate:"required,min=6,max=128"`
}

var validate = validator.New()

// ValidateCredentials checks username and password locally.
func ValidateCredentials(username, password string) error {
	err := validate.Struct(credentials{Username: username, Password: password})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: strings.ToLower(verrs[0].Field()), Rule: verrs[0].Tag()}
	}
	return err
}
