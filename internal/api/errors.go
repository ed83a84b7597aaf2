package api

// errors.go defines the error codes returned by the gateway's HTTP API

import "fmt"

// APIError represents a structured error raised by an HTTP handler.
type APIError struct {
	// code is the API error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *APIError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *APIError) Code() ErrorCode { return e.code }
func (e *APIError) Unwrap() error   { return e.wrapped }

// ErrorCode is used in the errors array of an error response.
//
//   - 7000-7999 technical errors: the request could not be processed because of the supplied data
//     or a problem on this side.
//   - 8000-8999 network errors: the payment network refused the request or answered with
//     something that could not be trusted.
type ErrorCode int

const (
	// ErrCodeMalformedRequest is used when the request body is not valid JSON or does not match the expected shape
	ErrCodeMalformedRequest ErrorCode = 7001

	// ErrCodeInvalidRequest is used when a payment request can not be sent as given
	// (forbidden characters, missing fields)
	ErrCodeInvalidRequest ErrorCode = 7002

	// ErrCodePrecondition is used when a notification fails a structural precondition
	// (missing top-level or sub-fields, certificate mismatch). The network retries these.
	ErrCodePrecondition ErrorCode = 7003

	// ErrCodeSigning is used when the operator key can not be decrypted or used
	ErrCodeSigning ErrorCode = 7004

	// ErrCodeInternalError is used when an internal server error occurs
	ErrCodeInternalError ErrorCode = 7005

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = 7006

	// ErrCodeEnvironmentNotConfigured is used when production is requested but has no credentials
	ErrCodeEnvironmentNotConfigured ErrorCode = 7007

	// ErrCodeUnauthorized is used when the X-API-Key header is missing or wrong
	ErrCodeUnauthorized ErrorCode = 7008

	// ErrCodeNetworkUnavailable is used when both network endpoints failed
	ErrCodeNetworkUnavailable ErrorCode = 8001

	// ErrCodeNetworkRejected is used when the network answers with a non-zero edoPet
	ErrCodeNetworkRejected ErrorCode = 8002

	// ErrCodeNetworkResponse is used when the network's reply is malformed or its signature does not verify
	ErrCodeNetworkResponse ErrorCode = 8003
)

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &APIError{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &APIError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

// WrapPreconditionError wraps a structural notification failure.
//
// The webhook returns these as a 5xx response so that the network redelivers the notification.
func WrapPreconditionError(err error, msg string) error {
	return &APIError{code: ErrCodePrecondition, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &APIError{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &APIError{code: ErrCodeInternalError, message: msg, wrapped: err}
}

// NewRequestTooLargeError creates a request too large error.
func NewRequestTooLargeError(msg string) error {
	return &APIError{code: ErrCodeRequestTooLarge, message: msg}
}

// NewUnauthorizedError is returned by the API key middleware.
func NewUnauthorizedError(msg string) error {
	return &APIError{code: ErrCodeUnauthorized, message: msg}
}
