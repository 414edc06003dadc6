package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrVersionParse ErrorType = iota
	ErrResponseParse
	ErrTransport
	ErrValidation
	ErrInvalidConfig
	ErrInternal
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrVersionParse:
		return "VersionParse"
	case ErrResponseParse:
		return "ResponseParse"
	case ErrTransport:
		return "Transport"
	case ErrValidation:
		return "Validation"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// SearchError represents an error raised while searching one or more sources
type SearchError struct {
	Type   ErrorType
	Source string
	Err    error
}

// NewSearchError builds a SearchError of the given type
func NewSearchError(t ErrorType, source string, err error) *SearchError {
	return &SearchError{Type: t, Source: source, Err: err}
}

// Error implements the error interface
func (e *SearchError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Source, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *SearchError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a SearchError of type t
func IsType(err error, t ErrorType) bool {
	var se *SearchError
	return errors.As(err, &se) && se.Type == t
}
