// Package validation holds the waitlist email rule shared by the capture API and the cascade client.
package validation

import (
	"regexp"
	"strings"

	"github.com/akeren/waitlist-landing/pkg/constants"
	"github.com/go-playground/validator/v10"
)

// EmailTag is the struct tag name registered on validator engines.
const EmailTag = "waitlist_email"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail trims the address before matching, as the landing form does.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > constants.MaxEmailLength {
		return false
	}

	return emailPattern.MatchString(email)
}

// RegisterEmailValidation installs EmailTag on v.
func RegisterEmailValidation(v *validator.Validate) error {
	return v.RegisterValidation(EmailTag, func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
}
