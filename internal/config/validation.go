// File: internal/config/validation.go
// Author: momentics <momentics@gmail.com>

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("ifname", validateIfName); err != nil {
		panic(err)
	}
}

// validateIfName accepts names the kernel could hold in IFNAMSIZ.
func validateIfName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 15 {
		return false
	}
	return !strings.ContainsAny(name, "/ \x00")
}

// ValidationError is one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects every rejected field of a Config.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid configuration (%d error(s))", len(ve))
	for _, e := range ve {
		fmt.Fprintf(&sb, "; %s: %s", e.Field, e.Message)
	}
	return sb.String()
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "min", "gte":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "ifname":
		return "must be a valid interface name (1-15 chars, no '/', space or NUL)"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return err
	}
	out := make(ValidationErrors, 0, len(fes))
	for _, fe := range fes {
		out = append(out, ValidationError{
			Field:   strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config.")),
			Message: message(fe),
		})
	}
	return out
}
