// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"context"
	stderrors "errors"
)

// Validation builds a KindValidation error, e.g. a malformed id-set spec,
// an out-of-range VNI count, or a malformed event context.
func Validation(op, format string, args ...any) *Error {
	return New(KindValidation, op, format, args...)
}

// Exhaustion builds a KindExhaustion error for a reserve that could not be
// fully satisfied from the free set.
func Exhaustion(op, format string, args ...any) *Error {
	return New(KindExhaustion, op, format, args...)
}

// NotFound builds a KindNotFound error for an unknown job ID.
func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, format, args...)
}

// Deadline builds a KindDeadline error for an expired eventlog wait.
func Deadline(op, format string, args ...any) *Error {
	return New(KindDeadline, op, format, args...)
}

// Transport builds a KindTransport error for RPC delivery/decode failures.
func Transport(op string, cause error, format string, args ...any) *Error {
	return Wrap(KindTransport, op, cause, format, args...)
}

// Device builds a KindDevice error for a failure to enumerate or open a
// local NIC. Device errors are logged and skipped by callers, never fatal.
func Device(op string, cause error, format string, args ...any) *Error {
	return Wrap(KindDevice, op, cause, format, args...)
}

// Busy builds a KindBusy error for a CXI service destroy that failed
// with EBUSY.
func Busy(op string, cause error, format string, args ...any) *Error {
	return Wrap(KindBusy, op, cause, format, args...)
}

// FromContext maps context.Canceled/context.DeadlineExceeded to a
// KindDeadline error, otherwise returns nil so the caller falls through to
// its own classification.
func FromContext(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return Wrap(KindDeadline, op, err, "%s", err.Error())
	}
	return nil
}

// IsNotFound reports whether err is (or wraps) a KindNotFound error —
// jobtap's cleanup handler uses this to treat an unknown job ID as success.
func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotFound
}

// IsExhaustion reports whether err is (or wraps) a KindExhaustion error.
func IsExhaustion(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindExhaustion
}

// IsBusy reports whether err is (or wraps) a KindBusy error — a CXI
// service destroy that failed with EBUSY, which the caller counts and
// retries rather than aborting.
func IsBusy(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindBusy
}
