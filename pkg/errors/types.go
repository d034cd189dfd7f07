// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package errors provides the structured error taxonomy shared by every
// component in this module: identifier-set / VNI-pool validation and
// exhaustion, eventlog deadlines and malformed entries, and device
// enumeration failures.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind classifies a failure the way spec.md §7 enumerates them.
type Kind string

const (
	// KindValidation covers malformed configuration, out-of-range counts,
	// and malformed event contexts. Fatal to the current operation.
	KindValidation Kind = "VALIDATION"

	// KindExhaustion covers insufficient free VNIs in the pool.
	KindExhaustion Kind = "EXHAUSTION"

	// KindNotFound covers an unknown job ID on release/lookup.
	KindNotFound Kind = "NOT_FOUND"

	// KindDeadline covers an eventlog wait that expired.
	KindDeadline Kind = "DEADLINE"

	// KindTransport covers RPC delivery or decode failures.
	KindTransport Kind = "TRANSPORT"

	// KindDevice covers failure to enumerate or open a local NIC.
	KindDevice Kind = "DEVICE"

	// KindBusy covers a CXI service destroy that failed because the
	// service is still in use (EBUSY); callers retry these under
	// pkg/retry.RetryBusy rather than treating them as fatal.
	KindBusy Kind = "BUSY"
)

// Error is the structured error type returned at every package boundary
// in this module. Callers recover the Kind with errors.As and branch on
// it; Unwrap exposes the underlying cause for errors.Is chains.
type Error struct {
	Kind      Kind
	Op        string // operation that failed, e.g. "vnipool.reserve"
	Message   string
	Timestamp time.Time
	Cause     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	}
}

// Wrap constructs an Error of the given kind carrying cause as its Unwrap
// target.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
