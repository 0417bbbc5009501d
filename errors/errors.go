// Package errors is the error vocabulary of attrgen.
//
// It re-exports github.com/cockroachdb/errors so every error created in the
// module carries a stack trace and can hold user-facing hints:
//
//	if err := store.Save(ctx, key, state); err != nil {
//	    return errors.Wrap(err, "failed to persist counter state")
//	}
//
// and it declares the sentinels the generation pipeline reports. Compare
// with errors.Is, never by message.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// Hints and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

var (
	// ErrNotFound indicates the requested identity or record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed input
	ErrInvalidRequest = New("invalid request")

	// ErrServiceUnavailable indicates the identity source cannot be reached
	ErrServiceUnavailable = New("service unavailable")
)

// Attribute generation failures.
var (
	// ErrMissingAttributeData: an identity carries no attribute mapping at all.
	// Fatal for the operation it occurs in.
	ErrMissingAttributeData = New("identity has no attributes")

	// ErrTemplateEvaluation: an expression failed to parse or render.
	// The attribute is left without a value.
	ErrTemplateEvaluation = New("template evaluation failed")

	// ErrMissingCounterSource: a counter attribute was built without a counter.
	ErrMissingCounterSource = New("counter is required")

	// ErrUniquenessExhausted: the uniqueness retry loop ran out of attempts.
	ErrUniquenessExhausted = New("uniqueness attempts exhausted")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsAttributeFailure reports whether err is one of the per-attribute failures
// that leave a single value unset without aborting the run.
func IsAttributeFailure(err error) bool {
	return err != nil && IsAny(err, ErrTemplateEvaluation, ErrMissingCounterSource, ErrUniquenessExhausted)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
