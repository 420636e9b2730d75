// internal/utils/validator.go
package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const minPhoneDigits = 6

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
	postalCodePattern = regexp.MustCompile(`^[\p{L}0-9][\p{L}0-9 -]{2,}$`)
)

// rule is a custom validation tag with the message shown when it fails.
type rule struct {
	check   validator.Func
	message string
}

var rules = map[string]rule{
	"strong_password": {
		check:   isStrongPassword,
		message: "password must contain at least 8 characters with uppercase, lowercase, number, and special character",
	},
	"username": {
		check:   matches(usernamePattern),
		message: "username must be 3-50 characters of letters, numbers and underscores",
	},
	"phone": {
		check:   isPhoneNumber,
		message: fmt.Sprintf("phone_number must contain at least %d digits and only digits, spaces, +, -, ( or )", minPhoneDigits),
	},
	"postal_code": {
		check:   matches(postalCodePattern),
		message: "postal_code must be at least 3 letters, digits, spaces or hyphens",
	},
	"notblank": {
		check: func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	for tag, r := range rules {
		if err := v.RegisterValidation(tag, r.check); err != nil {
			panic(fmt.Sprintf("register validation %q: %v", tag, err))
		}
	}
	// Report fields under their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

func isStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsNumber(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// isPhoneNumber accepts human formatting such as "+886 (912) 345-678";
// shipping input later keeps only the digits.
func isPhoneNumber(fl validator.FieldLevel) bool {
	digits := 0
	for _, r := range fl.Field().String() {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '+' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// GetValidationErrors flattens validator failures into response details.
// It returns nil for any other error.
func GetValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Tag:     fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	if r, ok := rules[fe.Tag()]; ok && r.message != "" {
		return r.message
	}

	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " is required"
	case "email":
		return "invalid email format"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
