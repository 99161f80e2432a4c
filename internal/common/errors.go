// Package common holds the errors, logging helpers and retry loop shared by
// the ledger packages.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every lookup of a missing account, category,
	// transaction or pattern rule. The CLI reports it as a warning.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry marks a row that already exists, such as a
	// re-imported statement line.
	ErrDuplicateEntry = errors.New("duplicate entry")

	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// NotFound describes the missing thing and wraps ErrNotFound:
//
//	common.NotFound("account %q", name) // account "Bank": not found
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// UserError carries the sentence the CLI prints instead of the raw error.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err (which may be nil) with a message for the user.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}

// Message returns the text to show for err: the outermost UserError's
// message if there is one, otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}
