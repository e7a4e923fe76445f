package service

import "fmt"

// Kind groups error codes by how callers should react.
type Kind int

const (
	KindAuth Kind = iota + 1
	KindValidation
	KindState
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Code is a machine-readable failure reason.
type Code string

const (
	CodeUnauthenticated    Code = "unauthenticated"
	CodeForbidden          Code = "forbidden"
	CodeMissingFields      Code = "missing_fields"
	CodeTooFewEvents       Code = "too_few_events"
	CodeTooManyEvents      Code = "too_many_events"
	CodeIncompleteEntry    Code = "incomplete_entry"
	CodeUnknownReference   Code = "unknown_reference"
	CodeMeetingNotFound    Code = "meeting_not_found"
	CodeRegistrationClosed Code = "registration_closed"
	CodePersistence        Code = "persistence_failure"
)

// Kind returns the taxonomy class of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeUnauthenticated, CodeForbidden:
		return KindAuth
	case CodeMeetingNotFound, CodeRegistrationClosed:
		return KindState
	case CodePersistence:
		return KindPersistence
	default:
		return KindValidation
	}
}

// Error is the typed failure returned by RegistrationService.
type Error struct {
	Code    Code
	Message string
	// Field names the offending input for validation errors.
	Field string
	// Index is the zero-based entry position for entry-level errors, -1 otherwise.
	Index int
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by code, so errors.Is(err, ErrTooManyEvents) works for any
// TooManyEvents error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Kind returns the taxonomy class of the error.
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Sentinels for errors.Is.
var (
	ErrUnauthenticated    = &Error{Code: CodeUnauthenticated}
	ErrForbidden          = &Error{Code: CodeForbidden}
	ErrMissingFields      = &Error{Code: CodeMissingFields}
	ErrTooFewEvents       = &Error{Code: CodeTooFewEvents}
	ErrTooManyEvents      = &Error{Code: CodeTooManyEvents}
	ErrIncompleteEntry    = &Error{Code: CodeIncompleteEntry}
	ErrUnknownReference   = &Error{Code: CodeUnknownReference}
	ErrMeetingNotFound    = &Error{Code: CodeMeetingNotFound}
	ErrRegistrationClosed = &Error{Code: CodeRegistrationClosed}
	ErrPersistence        = &Error{Code: CodePersistence}
)

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Index: -1}
}

func entryError(code Code, index int, field, msg string) *Error {
	return &Error{Code: code, Message: msg, Field: field, Index: index}
}
