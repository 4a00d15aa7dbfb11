package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken = errors.New("missing authorization token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNotSignedIn  = errors.New("not signed in")
)

// AuthError reports a failed sign-in or sign-out. It is never fatal to the
// session stream; the caller may retry.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
