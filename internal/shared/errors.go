package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState indicates the resource is not in a state that allows the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput indicates a malformed or inconsistent request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates a persistence or infrastructure failure.
	ErrInternal = errors.New("internal error")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserSafeMessage returns the message that can be shown to API clients.
// Internal failures are collapsed so storage details never leak.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInternal) {
		return "internal error"
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials):
		return err.Error()
	}
	return "internal error"
}

// WrapInternal tags a storage or infrastructure failure as ErrInternal while
// keeping the cause available to errors.Is/As.
func WrapInternal(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

// DetailedError pairs a taxonomy sentinel with a client facing message.
type DetailedError struct {
	Kind    error
	Message string
}

func (e *DetailedError) Error() string { return e.Message }

// Unwrap exposes the sentinel to errors.Is.
func (e *DetailedError) Unwrap() error { return e.Kind }

// Errorf builds a DetailedError of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &DetailedError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
