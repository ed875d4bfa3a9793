// Package apperr defines the tagged error taxonomy shared by the pipeline, the
// bounty manager and the contract facade. The HTTP layer maps kinds to status
// codes; nothing outside the contract facade inspects error text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for status mapping and retry policy
type Kind int

const (
	// Validation marks missing or malformed caller input. Never retried.
	Validation Kind = iota + 1
	// NotFound marks a token or bounty that does not exist on chain
	NotFound
	// Permission marks an admin-only contract call made by a non-admin key
	Permission
	// AlreadyDistributed marks a mutation on a closed bounty
	AlreadyDistributed
	// Upstream marks a generation, storage or chain RPC failure
	Upstream
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Permission:
		return "permission"
	case AlreadyDistributed:
		return "already_distributed"
	case Upstream:
		return "upstream"
	}
	return "unknown"
}

// Error is a kind-tagged error. Fields lists the offending request fields for
// validation errors.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a tagged error with no underlying cause
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags an underlying error
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Invalid creates a validation error naming the offending fields
func Invalid(message string, fields ...string) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

// KindOf extracts the kind of an error, or Upstream if it carries no tag
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Upstream
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
