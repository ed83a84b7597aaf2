package codi

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// structural preconditions
	ErrCodeInvalidEnvelope     ErrorCode = "INVALID_ENVELOPE"
	ErrCodeMissingField        ErrorCode = "MISSING_FIELD"
	ErrCodeCertificateMismatch ErrorCode = "CERTIFICATE_MISMATCH"
	ErrCodeForbiddenCharacter  ErrorCode = "FORBIDDEN_CHARACTER"

	// cryptographic failures
	ErrCodeKeyDecryptionFailed ErrorCode = "KEY_DECRYPTION_FAILED"
	ErrCodeSigningFailed       ErrorCode = "SIGNING_FAILED"
	ErrCodeVerificationFailed  ErrorCode = "VERIFICATION_FAILED"
)

// Error is returned for failures that are not business rejections.
// Business rejections are reported as a ResultCode instead.
type Error struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *Error) Code() ErrorCode { return e.code }
func (e *Error) Unwrap() error   { return e.wrapped }

// NewInvalidEnvelopeError is returned when a message is not a JSON object, carries no known
// payload key, or a payload can not be canonicalized.
func NewInvalidEnvelopeError(msg string) error {
	return &Error{code: ErrCodeInvalidEnvelope, message: msg}
}

func WrapInvalidEnvelopeError(err error, msg string) error {
	return &Error{code: ErrCodeInvalidEnvelope, message: msg, wrapped: err}
}

// NewMissingFieldError reports required fields that are absent.
func NewMissingFieldError(fields ...string) error {
	return &Error{code: ErrCodeMissingField, message: fmt.Sprintf("missing required fields: %v", fields)}
}

func NewCertificateMismatchError(msg string) error {
	return &Error{code: ErrCodeCertificateMismatch, message: msg}
}

func NewForbiddenCharacterError(msg string) error {
	return &Error{code: ErrCodeForbiddenCharacter, message: msg}
}

// NewKeyDecryptionFailedError is returned when the private key can not be decrypted.
// The underlying cause is logged by the signer and deliberately not wrapped.
func NewKeyDecryptionFailedError() error {
	return &Error{code: ErrCodeKeyDecryptionFailed, message: "private key could not be decrypted"}
}

// NewSigningFailedError is returned for any other signing failure. The cause is logged, not wrapped.
func NewSigningFailedError() error {
	return &Error{code: ErrCodeSigningFailed, message: "signing failed"}
}

func WrapVerificationFailedError(err error, msg string) error {
	return &Error{code: ErrCodeVerificationFailed, message: msg, wrapped: err}
}

// IsCode reports whether err is (or wraps) a codi Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.code == code
}
