// Package apperrors defines the error taxonomy shared by the client, the auth
// lifecycle and the console.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it
type Kind string

const (
	KindAuthentication Kind = "authentication" // missing/invalid credentials or expired token
	KindAuthorization  Kind = "authorization"  // valid session, insufficient role
	KindValidation     Kind = "validation"     // malformed input
	KindNetwork        Kind = "network"        // connectivity or timeout
	KindDataIntegrity  Kind = "data_integrity" // corrupted local session data
	KindUnknown        Kind = "unknown"
)

// Error is the structured error surfaced to callers
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around err
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage renders err the way the console shows it.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNetwork:
		return "Unable to reach the server. Check your connection and try again."
	case KindAuthentication:
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "Your session is no longer valid. Please log in again."
	case KindAuthorization:
		var e *Error
		if errors.As(err, &e) && e.Message != "" {
			return "Not allowed: " + e.Message
		}
		return "You don't have permission to perform this action."
	default:
		return err.Error()
	}
}
