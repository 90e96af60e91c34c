// Package errors provides structured error handling shared by Baranex services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request validation
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedType Code = "UNSUPPORTED_MEDIA_TYPE"

	// Identity
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeSelfModification   Code = "SELF_MODIFICATION"

	// MFA
	CodeMFAInvalidCode     Code = "MFA_INVALID_CODE"
	CodeMFANotEnrolled     Code = "MFA_NOT_ENROLLED"
	CodeMFAAlreadyEnabled  Code = "MFA_ALREADY_ENABLED"
	CodeMFAChallengeFailed Code = "MFA_CHALLENGE_FAILED"

	// Storage
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Workflow
	CodeInvalidTransition Code = "INVALID_STATUS_TRANSITION"
	CodeThreadLocked      Code = "THREAD_LOCKED"
	CodeRateLimited       Code = "RATE_LIMITED"

	// Upstream providers
	CodeUnavailable Code = "UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument, CodeMFAInvalidCode, CodeMFANotEnrolled:
		return http.StatusBadRequest
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnsupportedType:
		return http.StatusUnsupportedMediaType
	case CodeUnauthenticated, CodeInvalidCredentials, CodeMFAChallengeFailed:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeSelfModification:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeMFAAlreadyEnabled, CodeInvalidTransition, CodeThreadLocked:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
