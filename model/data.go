// Package model contains the domain types of the retransmission engine: logical and
// physical topics, partition offsets, offset change records and the summaries returned
// to operators.
package model

// tablePrefix is the default prefix of every table owned by this module.
const tablePrefix = "retransmit_"

// DomainError represents a domain-level rule violation detected by model types.
type DomainError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
}

func (e DomainError) Error() string {
	return e.Message
}

// Domain errors returned by model validation and lookups.
var (
	// ErrNegativeOffset indicates an offset below zero was supplied where a log position is required.
	ErrNegativeOffset = DomainError{Code: "NEGATIVE_OFFSET", Message: "offset must not be negative"}

	// ErrUnknownContentType indicates a topic declared an encoding this module cannot map.
	ErrUnknownContentType = DomainError{Code: "UNKNOWN_CONTENT_TYPE", Message: "unknown topic content type"}
)
