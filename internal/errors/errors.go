package errors

import (
	"errors"
	"fmt"
)

// Common error types for the relay server
var (
	// Login errors
	ErrVerificationFailed = errors.New("login verification failed")

	// Access workflow errors
	ErrNotificationDeliveryFailed = errors.New("failed to notify admin")
	ErrInvalidDecision            = errors.New("invalid access decision")

	// Bot session errors
	ErrInvalidCredentials = errors.New("bot token and completion api key are required")
	ErrStartupFailed      = errors.New("bot session startup failed")
	ErrCompletionFailed   = errors.New("completion failed")

	// Configuration errors
	ErrMissingSecret = errors.New("missing required secret")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
