package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the booking core can report
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindInvalidState     ErrorKind = "invalid_state"
	KindSlotConflict     ErrorKind = "slot_conflict"
	KindNotAvailable     ErrorKind = "not_available"
	KindInvalidRating    ErrorKind = "invalid_rating"
	KindInvalidSignature ErrorKind = "invalid_signature"
	KindMalformedEvent   ErrorKind = "malformed_event"
	KindInfrastructure   ErrorKind = "infrastructure_error"
)

// Error is a classified service error with a stable code for clients
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrSlotConflict) works for every conflict
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Retryable reports whether the caller may repeat the operation unchanged
func (e *Error) Retryable() bool {
	return e.Kind == KindInfrastructure
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Kind sentinels for errors.Is
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrInvalidState     = &Error{Kind: KindInvalidState}
	ErrSlotConflict     = &Error{Kind: KindSlotConflict}
	ErrNotAvailable     = &Error{Kind: KindNotAvailable}
	ErrInvalidRating    = &Error{Kind: KindInvalidRating}
	ErrInvalidSignature = &Error{Kind: KindInvalidSignature}
	ErrMalformedEvent   = &Error{Kind: KindMalformedEvent}
	ErrInfrastructure   = &Error{Kind: KindInfrastructure}
)

// Specific errors
var (
	ErrBookingNotFound  = newError(KindNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrProviderNotFound = newError(KindNotFound, "PROVIDER_NOT_FOUND", "mate not found")
	ErrUserNotFound     = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrSlotTaken        = newError(KindSlotConflict, "SLOT_CONFLICT", "the requested slot overlaps an active booking")
	ErrMateNotAvailable = newError(KindNotAvailable, "NOT_AVAILABLE", "mate is not accepting bookings")
	ErrRatingOutOfRange = newError(KindInvalidRating, "INVALID_RATING", "rating must be a whole number from 1 to 5")
)

func validationError(code, message string) *Error {
	return newError(KindValidation, code, message)
}

func forbiddenError(message string) *Error {
	return newError(KindForbidden, "FORBIDDEN", message)
}

func invalidStateError(message string) *Error {
	return newError(KindInvalidState, "INVALID_STATE", message)
}

func malformedEventError(message string, err error) *Error {
	return &Error{Kind: KindMalformedEvent, Code: "MALFORMED_EVENT", Message: message, Err: err}
}

// infrastructureError wraps an unexpected storage or network failure.
// Already classified errors pass through unchanged.
func infrastructureError(message string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return &Error{Kind: KindInfrastructure, Code: "INTERNAL_ERROR", Message: message, Err: err}
}

// KindOf returns the kind of a service error, or KindInfrastructure for anything unclassified
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInfrastructure
}
