package ai

import (
	"errors"
	"fmt"
)

const (
	goalFailureMessage       = "Failed to generate AI-powered tasks. Please try again."
	transcriptFailureMessage = "Failed to parse AI-powered tasks. Please try again."
)

var ErrRateLimited = errors.New("too many task generation requests, slow down")

// ConfigurationError means task generation is unavailable for the life of the
// process. It is decided once at startup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "AI task generation is not configured: " + e.Reason
}

// GenerationError carries the uniform user-facing message for a failed call.
// Err keeps the underlying cause for logs.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
