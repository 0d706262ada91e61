package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/invite-registry/internal/invite"
)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// Register custom "notblank" validator - rejects whitespace-only strings
	// Used for the redeemer id, which must have meaningful content
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	// Register custom "invitecode" validator - ASCII letters and digits only,
	// at most invite.MaxCodeLength characters. Case is not folded.
	_ = v.RegisterValidation("invitecode", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return IsInviteCode(str)
	})

	return v
}

// IsInviteCode reports whether s has the shape of an invite code.
func IsInviteCode(s string) bool {
	if s == "" || len(s) > invite.MaxCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
