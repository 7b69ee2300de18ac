package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized access")

	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrDeviceNotFound       = errors.New("device not found")
	ErrDeviceNotLinked      = errors.New("device is not linked to this account")
	ErrDeviceUnclaimed      = errors.New("no device registered for this MAC address")
	ErrDeviceAlreadyClaimed = errors.New("device already claimed by another account")
	ErrRecordNotFound       = errors.New("refill record not found")
	ErrNotificationNotFound   = errors.New("notification not found")

	ErrInvalidInput     = errors.New("invalid input data")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrWeakPassword     = errors.New("password does not meet requirements")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
