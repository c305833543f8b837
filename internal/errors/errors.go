package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a leadscan error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrParse          ErrorCode = "PARSE_ERROR"     // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// ScanError represents a structured error with code, status, and details.
type ScanError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ScanError {
	return &ScanError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewFileNotFound creates a 404 error when an input file does not exist.
func NewFileNotFound(path string) *ScanError {
	return &ScanError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewParseError creates a 422 error for a row that cannot be turned into a lead.
// A line of 0 means the row's position in the file is unknown.
func NewParseError(line int, reason string) *ScanError {
	msg := reason
	details := map[string]any{"reason": reason}
	if line > 0 {
		msg = fmt.Sprintf("line %d: %s", line, reason)
		details["line"] = line
	}
	return &ScanError{
		Code:    ErrParse,
		Status:  422,
		Message: msg,
		Details: details,
	}
}

// NewCancelled creates a 499 error when an operation is cancelled via its context.
func NewCancelled(op string) *ScanError {
	return &ScanError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ScanError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ScanError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a ScanError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *ScanError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
