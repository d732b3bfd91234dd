package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrProviderFailure    = errors.New("identity provider login failed")
	ErrSessionInvalid     = errors.New("session invalid or expired")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidFilename    = errors.New("no selected file")
	ErrInvalidTier        = errors.New("invalid quality tier")
	ErrImageNotFound      = errors.New("processed image not found")
	ErrOutputTooLarge     = errors.New("requested quality exceeds the pixel limit")
)

// InsufficientCreditsError is returned when a download costs more than the
// account holds. Nothing has been charged when it is returned.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Required, e.Available)
}

// TransformError wraps a failure to decode an upload or remove its background.
type TransformError struct {
	Cause error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("error processing image: %v", e.Cause)
}

func (e *TransformError) Unwrap() error {
	return e.Cause
}
