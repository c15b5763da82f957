package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned values still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic error kinds.
var (
	ErrNotFound           = New("notFound", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("forbidden", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("unauthorized", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("conflict", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("preconditionFailed", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("validationError", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("internalError", http.StatusInternalServerError, "internal server error")
	ErrTimeout            = New("timeout", http.StatusGatewayTimeout, "operation timed out")
	ErrCacheMiss          = New("cacheMiss", http.StatusNotFound, "cache miss")
)

// Application registry kinds.
var (
	ErrStudentNotFound = New("studentNotFound", http.StatusNotFound, "student not found")
	ErrJobNotFound     = New("jobNotFound", http.StatusNotFound, "job posting not found")
	ErrAlreadyApplied  = New("alreadyApplied", http.StatusBadRequest, "student already applied to this job")
	ErrClosed          = New("closed", http.StatusFound, "applications are closed, shortlist already published")
	ErrDeadlinePassed  = New("deadlinePassed", http.StatusBadRequest, "application deadline has passed")
	ErrNotEligible     = New("notEligible", http.StatusBadRequest, "student is not eligible for this job")
	ErrStudentPlaced   = New("studentPlaced", http.StatusBadRequest, "student is already placed")
	ErrStudentOptedOut = New("studentOptedOut", http.StatusBadRequest, "student registered without placement support")
)

// Round state machine kinds.
var (
	ErrRoundAlreadyRecorded      = New("roundAlreadyRecorded", http.StatusFound, "round already recorded")
	ErrInvalidRoundTransition    = New("invalidRoundTransition", http.StatusBadRequest, "invalid round transition")
	ErrShortlistAlreadyPublished = New("shortlistAlreadyPublished", http.StatusConflict, "shortlist already published")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrTimeout.Code, ErrTimeout.Status, ErrTimeout.Message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Storage wraps a persistence failure, reporting deadline expiry as timeout.
func Storage(err error, message string) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(err, ErrTimeout.Code, ErrTimeout.Status, message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, message)
}
