package service

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 16
)

// NewValidator returns a validator with the application's custom tags and
// JSON field names in error messages.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return passwordMeetsPolicy(fl.Field().String())
	})
	return v
}

// passwordMeetsPolicy requires 8 to 16 characters with at least one letter,
// one digit and one symbol.
func passwordMeetsPolicy(password string) bool {
	length := len([]rune(password))
	if length < passwordMinLength || length > passwordMaxLength {
		return false
	}
	var letter, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return letter && digit && symbol
}

func validationError(err error, fallback string) error {
	var fieldErrs validator.ValidationErrors
	message := fallback
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		message = formatFieldError(fieldErrs[0])
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "email":
		return e.Field() + " must be a valid email address"
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "password_policy":
		return e.Field() + " must be 8 to 16 characters and include a letter, a digit and a symbol"
	default:
		return e.Field() + " is invalid"
	}
}
