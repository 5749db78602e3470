package validation

import (
	"errors"
	"unicode"
)

// Password rules for email sign-up.
const (
	MinPasswordLength = 10
	MaxPasswordLength = 128
)

// ValidatePassword checks length and character classes.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("Password must be at least 10 characters.")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("Password must be at most 128 characters.")
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return errors.New("Password must contain an uppercase letter.")
	case !lower:
		return errors.New("Password must contain a lowercase letter.")
	case !digit:
		return errors.New("Password must contain a digit.")
	}
	return nil
}
