// Package errors defines the structured error type used across the gateway.
// Every error carries a stable code from pkg/constants plus an HTTP status so
// the transport layer can map failures without inspecting messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/opendgw/odg/pkg/constants"
)

// ================================================================================
// Error Type
// ================================================================================

// GatewayError is a structured error with a stable code and metadata.
type GatewayError struct {
	code       constants.ErrorCode
	httpStatus int
	message    string
	metadata   map[string]interface{}
	cause      error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Code returns the stable error code.
func (e *GatewayError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status the error maps to.
func (e *GatewayError) HTTPStatus() int {
	return e.httpStatus
}

// Message returns the human-readable message.
func (e *GatewayError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *GatewayError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error.
func (e *GatewayError) WithCause(cause error) *GatewayError {
	e.cause = cause
	return e
}

// WithMetadata attaches a context key/value pair.
func (e *GatewayError) WithMetadata(key string, value interface{}) *GatewayError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all attached metadata.
func (e *GatewayError) Metadata() map[string]interface{} {
	return e.metadata
}

// New creates a GatewayError with an explicit code and HTTP status.
func New(code constants.ErrorCode, httpStatus int, message string) *GatewayError {
	return &GatewayError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

// ================================================================================
// Validation Errors (path pipeline, codes fixed by validation step)
// ================================================================================

// ErrInvalidPath reports an empty or otherwise unusable path.
func ErrInvalidPath(message string) *GatewayError {
	return New(constants.ErrCodeInvalidPath, http.StatusBadRequest, message)
}

// ErrInvalidPathFormat reports a path that does not name a JSON resource.
func ErrInvalidPathFormat(message string) *GatewayError {
	return New(constants.ErrCodeInvalidPathFormat, http.StatusBadRequest, message)
}

// ErrPathTooLong reports a path exceeding the total length limit.
func ErrPathTooLong(length int) *GatewayError {
	return New(constants.ErrCodePathTooLong, http.StatusBadRequest,
		fmt.Sprintf("path length %d exceeds limit of %d", length, constants.MaxPathLength)).
		WithMetadata("length", length)
}

// ErrInvalidPathCharacters reports traversal sequences or forbidden characters.
func ErrInvalidPathCharacters(message string) *GatewayError {
	return New(constants.ErrCodeInvalidPathCharacters, http.StatusBadRequest, message)
}

// ErrPathSegmentTooLong reports a single segment exceeding the segment limit.
func ErrPathSegmentTooLong(segment string) *GatewayError {
	return New(constants.ErrCodePathSegmentTooLong, http.StatusBadRequest,
		fmt.Sprintf("path segment exceeds %d characters", constants.MaxSegmentLength)).
		WithMetadata("segment_length", len(segment))
}

// ErrInvalidUserID reports a missing or malformed user identity.
func ErrInvalidUserID(message string) *GatewayError {
	return New(constants.ErrCodeInvalidUserID, http.StatusBadRequest, message)
}

// ================================================================================
// Domain Errors
// ================================================================================

// ErrResourceNotFound reports an absent resource.
func ErrResourceNotFound(path string) *GatewayError {
	return New(constants.ErrCodeResourceNotFound, http.StatusNotFound,
		fmt.Sprintf("resource not found: %s", path)).
		WithMetadata("path", path)
}

// ErrAccessDenied reports an authorization failure.
func ErrAccessDenied(message string) *GatewayError {
	return New(constants.ErrCodeAccessDenied, http.StatusForbidden, message)
}

// ================================================================================
// Infrastructure Errors
// ================================================================================

// ErrStoreUnavailable reports a failed or timed-out store operation.
func ErrStoreUnavailable(message string) *GatewayError {
	return New(constants.ErrCodeStoreUnavailable, http.StatusServiceUnavailable, message)
}

// ErrInternal reports an unexpected internal failure.
func ErrInternal(message string) *GatewayError {
	return New(constants.ErrCodeInternal, http.StatusInternalServerError, message)
}

// ================================================================================
// Inspection Helpers
// ================================================================================

// AsGatewayError extracts a GatewayError from an error chain.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if stderrors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// CodeOf returns the stable code of err, or ErrCodeInternal for foreign errors.
func CodeOf(err error) constants.ErrorCode {
	if ge, ok := AsGatewayError(err); ok {
		return ge.Code()
	}
	return constants.ErrCodeInternal
}

// HTTPStatusOf returns the HTTP status of err, defaulting to 500.
func HTTPStatusOf(err error) int {
	if ge, ok := AsGatewayError(err); ok {
		return ge.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is a RESOURCE_NOT_FOUND error.
func IsNotFound(err error) bool {
	return CodeOf(err) == constants.ErrCodeResourceNotFound
}

// IsValidation reports whether err carries one of the path/identity
// validation codes. Validation failures are always the caller's fault.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case constants.ErrCodeInvalidPath,
		constants.ErrCodeInvalidPathFormat,
		constants.ErrCodePathTooLong,
		constants.ErrCodeInvalidPathCharacters,
		constants.ErrCodePathSegmentTooLong,
		constants.ErrCodeInvalidUserID:
		return true
	}
	return false
}

// IsInternal reports whether err is an infrastructure failure that should be
// surfaced as a 5xx rather than a verdict.
func IsInternal(err error) bool {
	switch CodeOf(err) {
	case constants.ErrCodeStoreUnavailable, constants.ErrCodeInternal:
		return true
	}
	return false
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse is the JSON structure for error payloads.
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts any error into the wire representation.
func ToErrorResponse(err error) *ErrorResponse {
	if ge, ok := AsGatewayError(err); ok {
		return &ErrorResponse{
			Error:            string(ge.Code()),
			ErrorDescription: ge.Message(),
			Metadata:         ge.Metadata(),
		}
	}
	return &ErrorResponse{
		Error:            string(constants.ErrCodeInternal),
		ErrorDescription: "an unexpected error occurred",
	}
}
