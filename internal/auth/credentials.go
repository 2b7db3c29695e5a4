package auth

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters in a local password.
const MinPasswordLength = 8

var (
	ErrInvalidEmail = errors.New("email is not a valid address")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address such as a@example.com.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum length on valid UTF-8 input.
func ValidatePassword(password string) error {
	if !utf8.ValidString(password) || utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
