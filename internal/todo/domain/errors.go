package domain

import "fmt"

// ValidationError rejects user input before any store call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func required(field string) error {
	return &ValidationError{Field: field, Reason: "must not be empty"}
}

// RequireText returns a ValidationError when value is blank.
func RequireText(field, value string) error {
	if Blank(value) {
		return required(field)
	}
	return nil
}
