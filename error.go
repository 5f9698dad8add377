package streamrpc

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error is a Go error that describes a JSON-RPC error.
//
// It is the type returned by handlers and produced internally while
// parsing or validating requests and responses; NewErrorResponse()
// converts it into the wire-level ErrorInfo carried by an ErrorResponse.
type Error struct {
	code    ErrorCode
	message string
	data    interface{}
	cause   error
}

// newError returns a new Error with the given code, applying options in
// order.
func newError(code ErrorCode, options []ErrorOption) Error {
	e := Error{code: code}
	for _, opt := range options {
		opt(&e)
	}
	return e
}

// NewError returns a new JSON-RPC error with an application-defined error
// code.
//
// It panics if code falls within the range reserved by the JSON-RPC
// specification ([-32768, -32000]); use NewErrorWithReservedCode for
// those.
func NewError(code ErrorCode, options ...ErrorOption) Error {
	if code.IsReserved() {
		panic(fmt.Sprintf("the error code %d is reserved by the JSON-RPC specification (%s)", code, code))
	}
	return newError(code, options)
}

// NewErrorWithReservedCode returns a new JSON-RPC error that uses a
// reserved error code.
//
// It panics if code is not within the reserved range. This function
// exists to force callers to be explicit about using a reserved code;
// under normal circumstances NewError() should be used instead.
func NewErrorWithReservedCode(code ErrorCode, options ...ErrorOption) Error {
	if !code.IsReserved() {
		panic(fmt.Sprintf("the error code %d is not reserved by the JSON-RPC specification", code))
	}
	return newError(code, options)
}

// MethodNotFound returns an error that indicates the requested method does
// not exist.
func MethodNotFound(options ...ErrorOption) Error {
	return newError(MethodNotFoundCode, options)
}

// InvalidParameters returns an error that indicates the provided
// parameters are malformed or invalid.
func InvalidParameters(options ...ErrorOption) Error {
	return newError(InvalidParametersCode, options)
}

// Code returns the JSON-RPC error code.
func (e Error) Code() ErrorCode { return e.code }

// Message returns the error message.
func (e Error) Message() string {
	if e.message != "" {
		return e.message
	}
	return e.code.String()
}

// Data returns the user-defined data associated with the error, if any.
func (e Error) Data() interface{} { return e.data }

// Error returns a human-readable description of the error.
func (e Error) Error() string {
	return describeError(e.code, e.message)
}

// Unwrap returns the cause of e, if known, so that e participates in
// errors.Is/errors.As chains built with github.com/cockroachdb/errors.
func (e Error) Unwrap() error { return e.cause }

// ErrorOption is an option that provides further information about an
// Error.
type ErrorOption func(*Error)

// WithCause associates a causal error with a JSON-RPC error.
//
// c is wrapped by the resulting error so it can still be recovered with
// errors.Is()/errors.As(). If no user-defined message has been set, c's
// message is used as the error's message.
func WithCause(c error) ErrorOption {
	return func(e *Error) {
		e.cause = errors.WithStack(c)
		if e.message == "" {
			e.message = c.Error()
		}
	}
}

// WithMessage provides a user-defined error message for a JSON-RPC error.
func WithMessage(format string, values ...interface{}) ErrorOption {
	return func(e *Error) {
		e.message = fmt.Sprintf(format, values...)
	}
}

// WithData associates additional data with an error. The data is included
// in the "data" field of the error object in the JSON-RPC response.
func WithData(data interface{}) ErrorOption {
	return func(e *Error) {
		e.data = data
	}
}
