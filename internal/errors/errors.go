package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an hdcview error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"       // 404
	ErrMalformedBounds     ErrorCode = "MALFORMED_BOUNDS"     // 422
	ErrDisplayUnavailable  ErrorCode = "DISPLAY_UNAVAILABLE"  // 422
	ErrCancelled           ErrorCode = "CANCELLED"            // 499
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrInternalConsistency ErrorCode = "INTERNAL_CONSISTENCY" // 500
	ErrCommandFailed       ErrorCode = "COMMAND_FAILED"       // 502
)

// HdcError represents a structured error with code, status, and details.
type HdcError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *HdcError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *HdcError {
	return &HdcError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a snapshot cannot be found.
func NewNotFound(identifier string) *HdcError {
	return &HdcError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("snapshot not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewViewNotFound creates a 404 error for a temp_id outside a snapshot's tree.
func NewViewNotFound(snapshotID string, tempID int) *HdcError {
	return &HdcError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("view %d not found in snapshot %s", tempID, snapshotID),
		Details: map[string]any{"snapshot_id": snapshotID, "temp_id": tempID},
	}
}

// NewFileNotFound creates a 404 error for a missing dump or export file.
func NewFileNotFound(path string) *HdcError {
	return &HdcError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewMalformedBounds creates a 422 error for a bounds value that does not
// match "[x0,y0][x1,y1]". It aborts the whole dump import.
func NewMalformedBounds(raw string) *HdcError {
	return &HdcError{
		Code:    ErrMalformedBounds,
		Status:  422,
		Message: fmt.Sprintf("malformed bounds: %q", raw),
		Details: map[string]any{"bounds": raw},
	}
}

// NewDisplayUnavailable creates a 422 error when a coordinate transform needs
// a display dimension that no source reported.
func NewDisplayUnavailable(field string) *HdcError {
	return &HdcError{
		Code:    ErrDisplayUnavailable,
		Status:  422,
		Message: fmt.Sprintf("display %s is unknown", field),
		Details: map[string]any{"field": field},
	}
}

// NewCancelled creates a 499 error when the caller's context is done.
func NewCancelled(operation string) *HdcError {
	return &HdcError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *HdcError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &HdcError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// NewInternalConsistency creates a 500 error for a view tree whose
// parent/temp_id links are broken. It signals a builder defect.
func NewInternalConsistency(tempID, parent int) *HdcError {
	return &HdcError{
		Code:    ErrInternalConsistency,
		Status:  500,
		Message: fmt.Sprintf("view %d has inconsistent parent %d", tempID, parent),
		Details: map[string]any{"temp_id": tempID, "parent": parent},
	}
}

// NewCommandFailed creates a 502 error when the device bridge produced no
// usable output.
func NewCommandFailed(args []string, stderr string, cause error) *HdcError {
	msg := fmt.Sprintf("command failed: %v", args)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	details := map[string]any{"args": args}
	if stderr != "" {
		details["stderr"] = stderr
	}
	return &HdcError{
		Code:    ErrCommandFailed,
		Status:  502,
		Message: msg,
		Details: details,
	}
}

// Is checks if an error (or anything it wraps) is an HdcError with the given code.
func Is(err error, code ErrorCode) bool {
	var hErr *HdcError
	if stderrors.As(err, &hErr) {
		return hErr.Code == code
	}
	return false
}

// As returns the HdcError in err's chain, if any.
func As(err error) (*HdcError, bool) {
	var hErr *HdcError
	if stderrors.As(err, &hErr) {
		return hErr, true
	}
	return nil, false
}
