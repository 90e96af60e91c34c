package errors

import stderrors "errors"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // User-facing message
	Metadata map[string]string // Additional context for logs
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the code from a domain error, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HTTPStatus resolves the HTTP status for any error.
func HTTPStatus(err error) int {
	return GetCode(err).HTTPStatus()
}

// PublicMessage returns the message safe to show a caller. Unknown errors
// collapse to a generic message.
func PublicMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.Code != CodeUnknown {
		return e.Message
	}
	return "internal error"
}

// InvalidArgument is shorthand for CodeInvalidArgument errors.
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// PermissionDenied is shorthand for CodePermissionDenied errors.
func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message)
}

// NotFound is shorthand for CodeNotFound errors.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}
