// Package apperr defines the service-wide error taxonomy. Every component
// returns *Error values so the dispatcher and the HTTP surface can map
// failures to a uniform response shape without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error kind on the wire.
type Code string

const (
	// Authentication.
	CodeAuthRequired Code = "AUTH_REQUIRED"
	CodeAuthFailed   Code = "AUTH_FAILED"

	// Input / validation.
	CodeInvalidArguments         Code = "INVALID_ARGUMENTS"
	CodeValidationError          Code = "VALIDATION_ERROR"
	CodeInvalidGlobalParameters  Code = "INVALID_GLOBAL_PARAMETERS"
	CodeInvalidFragmentParams    Code = "INVALID_FRAGMENT_PARAMETERS"
	CodeInvalidPosition          Code = "INVALID_POSITION"
	CodeInvalidAlias             Code = "INVALID_ALIAS"
	CodeAliasInUse               Code = "ALIAS_IN_USE"

	// Resources.
	CodeTemplateNotFound Code = "TEMPLATE_NOT_FOUND"
	CodeFragmentNotFound Code = "FRAGMENT_NOT_FOUND"
	CodeStyleNotFound    Code = "STYLE_NOT_FOUND"
	CodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	CodeNotFound         Code = "NOT_FOUND"

	// State.
	CodeSessionNotReady     Code = "SESSION_NOT_READY"
	CodeInvalidSessionState Code = "INVALID_SESSION_STATE"

	// Rendering.
	CodeRenderFailed Code = "RENDER_FAILED"

	// Images.
	CodeInvalidImageURL         Code = "INVALID_IMAGE_URL"
	CodeImageURLNotAccessible   Code = "IMAGE_URL_NOT_ACCESSIBLE"
	CodeInvalidImageContentType Code = "INVALID_IMAGE_CONTENT_TYPE"
	CodeImageTooLarge           Code = "IMAGE_TOO_LARGE"
	CodeImageURLTimeout         Code = "IMAGE_URL_TIMEOUT"
	CodeImageValidationError    Code = "IMAGE_VALIDATION_ERROR"

	// Registry.
	CodeGroupMismatch Code = "GROUP_MISMATCH"
	CodeLoadError     Code = "LOAD_ERROR"

	// Storage.
	CodeDiskFull        Code = "DISK_FULL"
	CodeCorruptMetadata Code = "CORRUPT_METADATA"
	CodeBlobTooLarge    Code = "BLOB_TOO_LARGE"

	// Server.
	CodeInternalError Code = "INTERNAL_ERROR"
)

// Error is the single error type crossing component boundaries.
type Error struct {
	Code     Code
	Message  string
	Recovery string
	Details  map[string]any
	err      error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// WithDetail returns e with one detail key set. Mutates and returns e so call
// sites can chain during construction.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// WithRecovery sets the suggested next action for the caller.
func (e *Error) WithRecovery(strategy string) *Error {
	e.Recovery = strategy
	return e
}

// New creates an Error with a code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that wraps a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), err: cause}
}

// CodeOf extracts the taxonomy code from any error. Unknown errors classify
// as INTERNAL_ERROR.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternalError
}

// As returns the *Error in err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Internal wraps an unexpected failure, preserving the cause for logs while
// keeping the wire message generic.
func Internal(cause error) *Error {
	return &Error{
		Code:     CodeInternalError,
		Message:  "internal server error",
		Recovery: "Retry the request; contact the operator if the problem persists",
		err:      cause,
	}
}
