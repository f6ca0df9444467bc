// Package errors classifies the failures a question can run into on its way
// from prose to a result.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind string

const (
	KindStoreUnavailable   Kind = "store_unavailable"
	KindModelTransport     Kind = "model_transport"
	KindUngeneratableQuery Kind = "ungeneratable_query"
	KindExecution          Kind = "execution"
	KindConfig             Kind = "config"
	KindInternal           Kind = "internal"
)

// Code is the stable identifier used in API error envelopes.
func (k Kind) Code() string {
	switch k {
	case KindStoreUnavailable:
		return "STORE_UNAVAILABLE"
	case KindModelTransport:
		return "MODEL_TRANSPORT_ERROR"
	case KindUngeneratableQuery:
		return "UNGENERATABLE_QUERY"
	case KindExecution:
		return "EXECUTION_ERROR"
	case KindConfig:
		return "CONFIG_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a failure tagged with its Kind.
type Error struct {
	Kind    Kind
	Message string
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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

func Wrapf(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindInternal
}
