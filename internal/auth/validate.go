package auth

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
	// MaxPasswordLength matches the bcrypt input limit.
	MaxPasswordLength = 72

	// DefaultUserType is assigned when registration omits a user type.
	DefaultUserType = "student"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail lower-cases and trims an email address. Emails are always
// stored in this form, which makes uniqueness case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks a normalized email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("email is not valid")
	}
	return nil
}

// ValidatePassword checks password length bounds.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return errors.New("password is required")
	case len(password) < MinPasswordLength:
		return errors.New("password must be at least 8 characters")
	case len(password) > MaxPasswordLength:
		return errors.New("password must be at most 72 characters")
	}
	return nil
}
