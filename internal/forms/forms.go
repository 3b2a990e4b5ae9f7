package forms

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FieldError is one validation failure, addressed by field name so callers
// can render it inline next to the input.
type FieldError struct {
	Field   string
	Message string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoginForm is the typed login input.
type LoginForm struct {
	RestaurantUsername string `validate:"required"`
	Username           string `validate:"required"`
	Password           string `validate:"required,min=6"`
	Remember           bool
}

// OrderForm carries the optional order comment.
type OrderForm struct {
	Comment string `validate:"max=500"`
}

// RegistrationForm is the typed sign-up input for a new restaurant.
type RegistrationForm struct {
	RestaurantName     string `validate:"required"`
	RestaurantUsername string `validate:"required,alphanum"`
	FirstName          string `validate:"required"`
	LastName           string `validate:"required"`
	Username           string `validate:"required,alphanum"`
	Email              string `validate:"required,email"`
	Password           string `validate:"required,min=6"`
}

// Validate checks a form and returns one entry per failing field; nil means
// the form is valid.
func Validate(form any) []FieldError {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "alphanum":
		return "may only contain letters and digits"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
