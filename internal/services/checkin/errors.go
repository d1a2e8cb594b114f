// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package checkin

import "fmt"

// ErrorType classifies check-in failures. Handlers map these to HTTP
// statuses; the engine itself never speaks HTTP.
type ErrorType string

const (
	ErrAlreadyCheckedIn ErrorType = "already_checked_in"
	ErrVisitorNotFound  ErrorType = "visitor_not_found"
	ErrLocationNotFound ErrorType = "location_not_found"
	ErrUnauthorized     ErrorType = "unauthorized"
	ErrUnknown          ErrorType = "unknown"
)

// Error is a typed, expected business outcome of a check-in operation.
// Validation failures travel as Error values; storage failures are
// normalized to ErrUnknown so internal detail never leaks.
type Error struct {
	Type    ErrorType
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}
