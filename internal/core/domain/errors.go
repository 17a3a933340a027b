package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	KindNotConfigured       ErrorKind = "not_configured"
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindRelayUnreachable    ErrorKind = "relay_unreachable"
	KindUpstreamUnreachable ErrorKind = "upstream_unreachable"
	KindUpstreamError       ErrorKind = "upstream_error"
	KindEmptyResult         ErrorKind = "empty_result"
	KindCredentialInvalid   ErrorKind = "credential_invalid"
	KindRateLimited         ErrorKind = "rate_limited"
	KindInternal            ErrorKind = "internal"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
)

// Error is the user-facing failure value. Message is meant to be shown as-is;
// Err keeps the underlying cause for logs and errors.Is/As.
type Error struct {
	Kind     ErrorKind
	Provider string // "cloud", "local", "relay"; empty when not provider specific
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error.
func NewError(kind ErrorKind, provider, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Err: cause}
}

// KindOf returns the kind carried by err, KindInternal for foreign errors
// and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
