package retransmit

import (
	"errors"
	"fmt"
)

// Error represents a retransmission error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message naming the offending
	// topic, partition, cluster or subscription
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for retransmission operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodePartitionDirectoryUnavailable indicates the partitions of a log could not be listed.
	ErrCodePartitionDirectoryUnavailable = "PARTITION_DIRECTORY_UNAVAILABLE"

	// ErrCodeOffsetNotFound indicates an offset lookup for a partition returned nothing usable.
	ErrCodeOffsetNotFound = "OFFSET_NOT_FOUND"

	// ErrCodeDeclarationFailed indicates a target offset could not be persisted.
	ErrCodeDeclarationFailed = "DECLARATION_FAILED"

	// ErrCodeConvergenceIndeterminate indicates a committed offset could not be read.
	// Convergence checks report "not converged" instead of returning it.
	ErrCodeConvergenceIndeterminate = "CONVERGENCE_INDETERMINATE"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return HasCode(err, ErrCodeNoData)
}

// HasCode reports whether err, or any error it wraps, is an *Error with the given code.
func HasCode(err error, code string) bool {
	var retransmitErr *Error
	if errors.As(err, &retransmitErr) {
		return retransmitErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var retransmitErr *Error
	if errors.As(err, &retransmitErr) {
		return retransmitErr.Code
	}
	return ""
}
