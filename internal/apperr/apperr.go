// Package apperr defines the error taxonomy shared by the service and its
// transports. Each error carries a machine-readable Code; callers branch on
// the code with errors.Is or Of and never on the message text.
package apperr

import "errors"

// Code classifies an error.
type Code string

const (
	CodeValidation     Code = "VALIDATION"
	CodeInvalidState   Code = "INVALID_STATE"
	CodePrecondition   Code = "PRECONDITION"
	CodeConflict       Code = "CONFLICT"
	CodePaymentGateway Code = "PAYMENT_GATEWAY"
	CodeNotFound       Code = "NOT_FOUND"
	CodeForbidden      Code = "FORBIDDEN"
)

// Error is a classified domain error.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Safe to show to the caller
	Cause   error  // Wrapped underlying error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with a code and message that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation     = New(CodeValidation, "validation failed")
	ErrInvalidState   = New(CodeInvalidState, "invalid session state")
	ErrPrecondition   = New(CodePrecondition, "precondition failed")
	ErrConflict       = New(CodeConflict, "conflict")
	ErrPaymentGateway = New(CodePaymentGateway, "payment gateway error")
	ErrNotFound       = New(CodeNotFound, "not found")
	ErrForbidden      = New(CodeForbidden, "forbidden")
)

// Of returns the code of the first *Error in err's chain, or "" if none.
func Of(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the failed operation may succeed if retried
// unchanged. Only gateway failures qualify.
func IsRetryable(err error) bool {
	return Of(err) == CodePaymentGateway
}

// Validation, InvalidState, Precondition, Conflict, NotFound and Forbidden
// are shorthands for New with the matching code.
func Validation(msg string) *Error   { return New(CodeValidation, msg) }
func InvalidState(msg string) *Error { return New(CodeInvalidState, msg) }
func Precondition(msg string) *Error { return New(CodePrecondition, msg) }
func Conflict(msg string) *Error     { return New(CodeConflict, msg) }
func NotFound(msg string) *Error     { return New(CodeNotFound, msg) }
func Forbidden(msg string) *Error    { return New(CodeForbidden, msg) }

// Gateway wraps a payment gateway failure.
func Gateway(msg string, cause error) *Error {
	return Wrap(CodePaymentGateway, msg, cause)
}
