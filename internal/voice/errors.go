package voice

import (
	"errors"
	"fmt"
)

var ErrNotListening = errors.New("no recognition session is active")

// UnsupportedError means no speech facility exists for this user.
type UnsupportedError struct{}

func (UnsupportedError) Error() string {
	return "Sorry, voice recognition is not supported."
}

type Category string

const (
	NoSpeech         Category = "no-speech"
	PermissionDenied Category = "permission-denied"
	Other            Category = "other"
)

// RecognitionError is a failed recognition session, already phrased for the user.
type RecognitionError struct {
	Category Category
	Code     string
}

func (e *RecognitionError) Error() string {
	switch e.Category {
	case NoSpeech:
		return "I didn't hear that. Please try again."
	case PermissionDenied:
		return "Microphone access was denied. Please enable it in your browser settings."
	default:
		return fmt.Sprintf("An error occurred: %s", e.Code)
	}
}

// Classify maps a platform error code to a RecognitionError.
func Classify(code string) *RecognitionError {
	switch code {
	case "no-speech":
		return &RecognitionError{Category: NoSpeech, Code: code}
	case "not-allowed", "permission-denied", "service-not-allowed":
		return &RecognitionError{Category: PermissionDenied, Code: code}
	default:
		return &RecognitionError{Category: Other, Code: code}
	}
}
