package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinNameLength     = 3
	MaxNameLength     = 60
	MaxAddressLength  = 400
	MinPasswordLength = 8
	MaxPasswordLength = 16
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// ValidateName checks a user or store display name.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength || n > MaxNameLength {
		return fmt.Errorf("%w: name must be %d-%d characters", ErrInvalidValue, MinNameLength, MaxNameLength)
	}
	return nil
}

// ValidateAddress allows an empty address.
func ValidateAddress(address string) error {
	if utf8.RuneCountInString(address) > MaxAddressLength {
		return fmt.Errorf("%w: address must be at most %d characters", ErrInvalidValue, MaxAddressLength)
	}
	return nil
}

// NormalizeEmail trims and lowercases email after checking it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email %q is not a valid address", ErrInvalidValue, email)
	}
	return strings.ToLower(email), nil
}

// ValidatePassword requires 8-16 characters with an uppercase letter and a special character.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidValue, MinPasswordLength, MaxPasswordLength)
	}
	var upper, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !special {
		return fmt.Errorf("%w: password needs an uppercase letter and a special character", ErrInvalidValue)
	}
	return nil
}
