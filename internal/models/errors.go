package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrExtractionFailure = errors.New("extraction failure")
	ErrEncodingFailure   = errors.New("encoding failure")
	ErrUnknownJob        = errors.New("unknown job")
	ErrAlreadyTerminal   = errors.New("job already in terminal state")
	ErrFileNotFound      = errors.New("file not found")
)

// EngineError carries the fetch engine's own message. Error returns it verbatim,
// Unwrap exposes the taxonomy sentinel.
type EngineError struct {
	Kind    error
	Message string
}

func NewEngineError(kind error, message string) *EngineError {
	return &EngineError{
		Kind:    kind,
		Message: message,
	}
}

func (e *EngineError) Error() string {
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Kind
}

// RequestError rejects a caller's input before any work starts.
type RequestError struct {
	Message string
}

func NewRequestError(format string, args ...any) *RequestError {
	return &RequestError{
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}
