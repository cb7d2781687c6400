package provider

import (
	"errors"
	"fmt"
)

// ArgumentError reports an invalid argument to a constructor. It is raised
// at construction time, never deferred to execution.
type ArgumentError struct {
	// Code identifies the error category.
	Code ArgumentErrorCode

	// Argument names the offending parameter.
	Argument string

	// Message is a human-readable description.
	Message string
}

// ArgumentErrorCode categorizes argument errors.
type ArgumentErrorCode string

const (
	// ErrCodeArgumentNull indicates a required argument is absent.
	ErrCodeArgumentNull ArgumentErrorCode = "ARGUMENT_NULL"

	// ErrCodeUnsupportedExpressionShape indicates a typed query was requested
	// over an expression whose type is not a parameterized shape.
	ErrCodeUnsupportedExpressionShape ArgumentErrorCode = "UNSUPPORTED_EXPRESSION_SHAPE"
)

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Argument, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Argument)
}

func argumentNull(name string) *ArgumentError {
	return &ArgumentError{Code: ErrCodeArgumentNull, Argument: name}
}

// IsArgumentNull returns true if err reports a missing argument.
// Uses errors.As to handle wrapped errors.
func IsArgumentNull(err error) bool {
	var ae *ArgumentError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeArgumentNull
	}
	return false
}

// IsUnsupportedExpressionShape returns true if err reports a non-generic
// expression passed to typed query construction.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedExpressionShape(err error) bool {
	var ae *ArgumentError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeUnsupportedExpressionShape
	}
	return false
}
