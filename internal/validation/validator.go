// Package validation checks request payloads before they reach the services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator wraps a configured go-playground validator.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a validator with the portal's custom tags registered.
func New() *Validator {
	v := validator.New()
	registerCustomValidators(v)
	return &Validator{structValidator: v}
}

var defaultValidator = New()

// Struct validates s with the shared validator and returns the first failure
// as a human-readable error.
func Struct(s any) error {
	return defaultValidator.Validate(s)
}

// Validate runs struct-tag validation on s.
func (v *Validator) Validate(s any) error {
	err := v.structValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(message(verrs[0]))
	}
	return err
}

func registerCustomValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("portal_email", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// messages maps field.tag to the text shown to the user.
var messages = map[string]string{
	"email.required":      "Email and password are required",
	"password.required":   "Email and password are required",
	"email.portal_email":  "Invalid email format",
	"password.min":        "Password must be at least 8 characters",
	"full_name.min":       "Name is too short",
	"full_name.max":       "Name is too long",
	"year_of_study.min":   "Year of study must be between 1 and 10",
	"year_of_study.max":   "Year of study must be between 1 and 10",
	"uid.required":        "uid is required",
	"uid.uuid":            "uid must be a valid id",
	"content.required":    "Message content is required",
	"content.not_blank":   "Message content is required",
	"content.max":         "Message is too long",
	"reason.max":          "Reason is too long",
	"conversationId.uuid": "conversationId must be a valid id",
	"title.max":           "Title is too long",
	"note.max":            "Note is too long",
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
