package contract

import "fmt"

// ErrorCode classifies a store failure. The values are stable strings so
// that layers on top of the store (API servers, migration tooling) can map
// them without importing Go-level sentinel errors.
type ErrorCode string

const (
	// ErrorCodeResourceDoesNotExist is returned when a referenced entity is
	// absent, or not in the lifecycle stage the operation requires.
	ErrorCodeResourceDoesNotExist ErrorCode = "RESOURCE_DOES_NOT_EXIST"

	// ErrorCodeResourceAlreadyExists is returned on a unique-key collision.
	ErrorCodeResourceAlreadyExists ErrorCode = "RESOURCE_ALREADY_EXISTS"

	// ErrorCodeInvalidParameterValue covers malformed input and write-once
	// conflicts such as re-logging a param key with a different value.
	ErrorCodeInvalidParameterValue ErrorCode = "INVALID_PARAMETER_VALUE"

	// ErrorCodeInvalidState is returned when the operation is not legal for
	// the entity's current lifecycle stage or run status.
	ErrorCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrorCodeIntegrityViolation is returned when a write would orphan
	// dependent rows.
	ErrorCodeIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION"

	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is the error type returned by every store operation.
type Error struct {
	Code    ErrorCode
	Message string
	err     error
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorWith wraps an underlying cause, typically a database error.
func NewErrorWith(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.err)
	}

	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}
