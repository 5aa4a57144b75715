package security

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "user-management-api/pkg/errors"
)

// alphaSpacePattern matches names made of ASCII letters and whitespace.
var alphaSpacePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)

// fieldLabels maps json field names to the labels used in messages.
var fieldLabels = map[string]string{
	"firstName": "First name",
	"lastName":  "Last name",
	"email":     "Email",
	"password":  "Password",
	"phone":     "Phone",
	"id":        "ID",
}

// NewValidator returns a validator that reports json field names and knows
// the alphaspace rule.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	RegisterValidators(v)
	return v
}

// RegisterValidators adds the custom tags used by request DTOs.
func RegisterValidators(v *validator.Validate) {
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
		return alphaSpacePattern.MatchString(fl.Field().String())
	})
}

// FormatValidationError converts validator.ValidationErrors into a
// ValidationError carrying one message per failing field.
func FormatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make([]pkgerrors.FieldError, 0, len(validationErrors))
	seen := make(map[string]bool, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, pkgerrors.FieldError{
			Field:   field,
			Message: fieldMessage(field, e.Tag(), e.Param()),
		})
	}
	return pkgerrors.NewValidationErrors(fields)
}

func fieldMessage(field, tag, param string) string {
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, param)
	case "alphaspace":
		return fmt.Sprintf("%s can only contain letters and spaces", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName trims surrounding whitespace from a name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
