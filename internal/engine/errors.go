package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure while dispatching a message.
//
// The Run loop logs these and moves on to the next message.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RequestID identifies the affected message.
	RequestID string

	// Details contains additional context.
	Details map[string]string

	cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeHandlerFailed indicates the handler returned an error.
	ErrCodeHandlerFailed RuntimeErrorCode = "HANDLER_FAILED"

	// ErrCodeHandlerPanic indicates the handler panicked.
	ErrCodeHandlerPanic RuntimeErrorCode = "HANDLER_PANIC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request=%s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the handler error, if any.
func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// IsPanicError returns true if the error is a recovered handler panic.
// Uses errors.As to handle wrapped errors.
func IsPanicError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeHandlerPanic
	}
	return false
}

// NewHandlerError wraps an error returned by the handler.
func NewHandlerError(requestID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeHandlerFailed,
		Message:   err.Error(),
		RequestID: requestID,
		cause:     err,
	}
}

// NewPanicError records a recovered panic value.
func NewPanicError(requestID string, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeHandlerPanic,
		Message:   fmt.Sprintf("handler panicked: %v", recovered),
		RequestID: requestID,
		Details: map[string]string{
			"panic": fmt.Sprintf("%v", recovered),
		},
	}
}
