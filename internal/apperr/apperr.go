// Package apperr defines the abstract error taxonomy shared by every
// AgentMem capability: Validation, NotFound, Conflict, Transient,
// Capability, and Internal (spec §7).
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the abstract categories every
// public AgentMem operation must report.
type Kind string

const (
	// Validation means the input violates a stated contract (importance
	// out of range, empty content, embedding dimension mismatch).
	Validation Kind = "validation"
	// NotFound means the referenced id does not exist or is logically deleted.
	NotFound Kind = "not_found"
	// Conflict means an optimistic-concurrency version mismatch, or
	// contradicting decisions survived reconciliation.
	Conflict Kind = "conflict"
	// Transient means a retryable infrastructure failure: timeout,
	// connection reset, or a required-path cache miss.
	Transient Kind = "transient"
	// Capability means an LLM/embedder/content-describer failure; callers
	// may choose to degrade rather than fail.
	Capability Kind = "capability"
	// Internal means an invariant violation. Never swallowed, never retried.
	Internal Kind = "internal"
)

// Error is the single concrete error type every AgentMem operation returns.
// It carries a stable machine-readable Kind, a human message, the
// operation that failed, an optional wrapped cause, and a details map for
// structured context (spec §7 "User-visible failure behaviour").
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetail attaches a structured detail key/value and returns the
// receiver for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an *Error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error under kind, preserving it as Cause so
// errors.Is/errors.As continue to work through the wrapped chain.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		// Already classified; keep the original kind unless the caller is
		// more specific than Internal (the common "unknown failure" default).
		if ae.Kind != "" && ae.Kind != Internal {
			return ae
		}
	}
	return &Error{Kind: kind, Op: op, Cause: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}

// KindOf extracts the Kind of err, defaulting to Internal when err is not
// a classified *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if err == nil {
		return ""
	}
	return Internal
}

func Validationf(op, format string, args ...any) *Error {
	return New(Validation, op, format, args...)
}

func NotFoundf(op, format string, args ...any) *Error {
	return New(NotFound, op, format, args...)
}

func Conflictf(op, format string, args ...any) *Error {
	return New(Conflict, op, format, args...)
}

func Transientf(op, format string, args ...any) *Error {
	return New(Transient, op, format, args...)
}

func Capabilityf(op, format string, args ...any) *Error {
	return New(Capability, op, format, args...)
}

func Internalf(op, format string, args ...any) *Error {
	return New(Internal, op, format, args...)
}
