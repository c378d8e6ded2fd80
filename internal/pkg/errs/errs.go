package errs

import (
	"errors"
	"fmt"
	"time"
)

// Code classifies an operation failure for clients and the gateway ack layer.
type Code string

const (
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeNotAMember          Code = "NOT_A_MEMBER"
	CodeBanned              Code = "BANNED"
	CodeMuted               Code = "MUTED"
	CodeRoomInactive        Code = "ROOM_INACTIVE"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeInvalidTarget       Code = "INVALID_TARGET"
	CodeDuplicateTransact   Code = "DUPLICATE_TRANSACTION"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeStoreUnavailable    Code = "STORE_UNAVAILABLE"
)

// Error is a coded error returned synchronously to callers.
type Error struct {
	Code       Code          `json:"code"`
	Message    string        `json:"message"`
	RetryAfter time.Duration `json:"-"`
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause to a coded error, preserving the code for CodeOf.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// RateLimited builds the throttling error carrying the retry hint.
func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    "too many requests",
		RetryAfter: retryAfter,
	}
}

var (
	ErrUnauthenticated     = New(CodeUnauthenticated, "authentication required")
	ErrUnauthorized        = New(CodeUnauthorized, "operation not allowed")
	ErrNotAMember          = New(CodeNotAMember, "not a member of this room")
	ErrBanned              = New(CodeBanned, "banned from this room")
	ErrMuted               = New(CodeMuted, "muted in this room")
	ErrRoomInactive        = New(CodeRoomInactive, "room is not active")
	ErrInsufficientBalance = New(CodeInsufficientBalance, "insufficient balance")
	ErrInvalidTarget       = New(CodeInvalidTarget, "invalid gift target")
	ErrDuplicateTransact   = New(CodeDuplicateTransact, "transaction already processed")
)

// NotFound builds a NOT_FOUND error naming the missing entity.
func NotFound(what string) *Error {
	return New(CodeNotFound, what+" not found")
}

// Validation builds a VALIDATION_FAILED error.
func Validation(message string) *Error {
	return New(CodeValidationFailed, message)
}

// StoreUnavailable wraps a transient infrastructure failure; callers may retry
// with the same idempotency key.
func StoreUnavailable(cause error) *Error {
	return Wrap(CodeStoreUnavailable, "store temporarily unavailable", cause)
}

// CodeOf extracts the taxonomy code from any error in the chain; unknown
// errors map to STORE_UNAVAILABLE since they come from infrastructure.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStoreUnavailable
}

// As returns the coded error in the chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
