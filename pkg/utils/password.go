package utils

import (
	"fmt"
	"unicode"

	appErrors "hydrolink-monitor/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the dashboard account policy minimum.
const MinPasswordLength = 8

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// ValidatePassword enforces the account password policy: at least
// MinPasswordLength characters with an upper case letter, a lower case
// letter, a digit and a symbol. Failures wrap ErrWeakPassword so the
// delivery layer maps them to a client error.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: at least %d characters required", appErrors.ErrWeakPassword, MinPasswordLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if !upper || !lower || !digit || !symbol {
		return fmt.Errorf("%w: upper and lower case letters, a digit and a symbol required", appErrors.ErrWeakPassword)
	}

	return nil
}
