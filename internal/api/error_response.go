package api

// error_response.go implements the error response body returned by every route.
// It maps errors from the lower level packages to an HTTP status and error code.

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/information-sharing-networks/codi-gateway/internal/delivery"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/information-sharing-networks/codi-gateway/internal/logger"
	"github.com/information-sharing-networks/codi-gateway/internal/network"
)

// MessageNetworkTimeout is the error message when both network endpoints timed out.
const MessageNetworkTimeout = "service unavailable: network timeout"

// ErrorResponse is the error body returned by the API
type ErrorResponse struct {

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod"`

	// The URI that was requested
	RequestURI string `json:"requestUri"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText"`

	// A long description corresponding to the HTTP status code with additional information
	StatusCodeMessage string `json:"statusCodeMessage,omitempty"`

	// The request id
	ProviderCorrelationReference string `json:"providerCorrelationReference,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime"`

	// An array of errors providing more detail about the root cause
	Errors []DetailedError `json:"errors"`
}

// DetailedError represents a detailed error in the error response
type DetailedError struct {
	// 7000-7999 for technical errors, 8000-8999 for network errors
	ErrorCode        ErrorCode `json:"errorCode"`
	Property         string    `json:"property,omitempty"`
	ErrorCodeText    string    `json:"errorCodeText"`
	ErrorCodeMessage string    `json:"errorCodeMessage"`
}

// mapping is the status, code and short text an error maps to
type mapping struct {
	statusCode int
	code       ErrorCode
	text       string
	// message replaces err.Error() in the response when set
	message string
}

var internalError = mapping{http.StatusInternalServerError, ErrCodeInternalError, "Internal Error", ""}

// MapErrorToResponse maps api, delivery, network, environment, codi and crypto errors to an error response.
//
// The full error is logged server-side by RespondWithErrorResponse.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	m, ok := mapError(err)
	if !ok {
		// fallback - this is not expected - return an internal error response and log the unmapped error
		reqLogger := logger.ContextRequestLogger(r.Context())
		reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
			slog.String("error_type", fmt.Sprintf("%T", err)),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		m = internalError
		m.message = "An internal error occurred"
	}

	message := m.message
	if message == "" {
		message = err.Error()
	}

	return &ErrorResponse{
		HTTPMethod:                   r.Method,
		RequestURI:                   r.RequestURI,
		StatusCode:                   m.statusCode,
		StatusCodeText:               http.StatusText(m.statusCode),
		StatusCodeMessage:            m.text,
		ProviderCorrelationReference: requestID,
		ErrorDateTime:                time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        m.code,
				ErrorCodeText:    m.text,
				ErrorCodeMessage: message,
			},
		},
	}
}

// mapError tries the most specific error types first
func mapError(err error) (mapping, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return mapAPIError(apiErr), true
	}

	var deliveryErr *delivery.Error
	if errors.As(err, &deliveryErr) {
		m := mapping{http.StatusInternalServerError, ErrCodeNetworkUnavailable, "Network unavailable", ""}
		if deliveryErr.Timeout() {
			m.message = MessageNetworkTimeout
		}
		return m, true
	}

	var protocolErr *network.ProtocolError
	if errors.As(err, &protocolErr) {
		return mapping{http.StatusBadGateway, ErrCodeNetworkRejected, "Network rejected the request", ""}, true
	}

	var responseErr *network.ResponseError
	if errors.As(err, &responseErr) || errors.Is(err, network.ErrInvalidResponseSignature) {
		return mapping{http.StatusBadGateway, ErrCodeNetworkResponse, "Invalid network response", ""}, true
	}

	if errors.Is(err, environment.ErrNotConfigured) {
		return mapping{http.StatusBadRequest, ErrCodeEnvironmentNotConfigured, "Environment not configured", ""}, true
	}

	var codiErr *codi.Error
	if errors.As(err, &codiErr) {
		return mapCodiError(codiErr), true
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		return internalError, true
	}

	return mapping{}, false
}

func mapAPIError(err *APIError) mapping {
	switch err.Code() {
	case ErrCodeMalformedRequest:
		return mapping{http.StatusBadRequest, err.Code(), "Malformed request", ""}
	case ErrCodeInvalidRequest:
		return mapping{http.StatusBadRequest, err.Code(), "Invalid request", ""}
	case ErrCodePrecondition:
		return mapping{http.StatusInternalServerError, err.Code(), "Notification precondition failed", ""}
	case ErrCodeRequestTooLarge:
		return mapping{http.StatusRequestEntityTooLarge, err.Code(), "Request too large", ""}
	case ErrCodeUnauthorized:
		return mapping{http.StatusUnauthorized, err.Code(), "Unauthorized", ""}
	default:
		return internalError
	}
}

func mapCodiError(err *codi.Error) mapping {
	switch err.Code() {
	case codi.ErrCodeForbiddenCharacter, codi.ErrCodeMissingField, codi.ErrCodeInvalidEnvelope:
		return mapping{http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request", ""}
	case codi.ErrCodeKeyDecryptionFailed, codi.ErrCodeSigningFailed:
		return mapping{http.StatusInternalServerError, ErrCodeSigning, "Signing failed", ""}
	case codi.ErrCodeCertificateMismatch:
		return mapping{http.StatusInternalServerError, ErrCodePrecondition, "Notification precondition failed", ""}
	default:
		return internalError
	}
}
