// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package jobcontext carries a job ID through a context.Context and
// provides the deadline bookkeeping the eventlog waiter needs: a single
// overall deadline that is recomputed, not reset, on every iteration of a
// wait loop.
package jobcontext

import (
	"context"
	"time"

	"github.com/flux-framework/flux-coral2/pkg/logging"
)

// DefaultWaitTimeout is the default bound on a shell plugin's wait for a
// job-environment RPC or eventlog entry before it proceeds without one.
const DefaultWaitTimeout = 10 * time.Second

// WithJobID attaches jobID to ctx under the key pkg/logging.WithContext
// already knows how to read, so a Logger.WithContext(ctx) call picks it
// up without this package needing to depend on pkg/logging's internals
// beyond the exported key.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, logging.JobIDKey, jobID)
}

// JobID returns the job ID previously attached with WithJobID, if any.
func JobID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(logging.JobIDKey).(string)
	return id, ok
}

// WithDeadline adds deadline to ctx unless ctx already carries an earlier
// one, in which case ctx is returned unchanged with a no-op cancel.
func WithDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	if existing, ok := ctx.Deadline(); ok && existing.Before(deadline) {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, deadline)
}

// EnsureTimeout guarantees ctx carries a deadline, applying defaultTimeout
// (or DefaultWaitTimeout if zero) when it doesn't already have one.
func EnsureTimeout(ctx context.Context, defaultTimeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if defaultTimeout == 0 {
		defaultTimeout = DefaultWaitTimeout
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

// RemainingTimeout computes the time left until deadline, the way the
// reference eventlog wait loop recomputes its remaining budget on every
// iteration instead of resetting a per-read timeout. ok is false when
// deadline is the zero value, meaning "wait indefinitely" — callers must
// not subtract elapsed time from an unset deadline.
func RemainingTimeout(deadline time.Time, now time.Time) (remaining time.Duration, ok bool) {
	if deadline.IsZero() {
		return 0, false
	}
	return deadline.Sub(now), true
}

// IsContextError reports whether err is context.Canceled or
// context.DeadlineExceeded.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}
	return err == context.Canceled || err == context.DeadlineExceeded
}

// Error wraps a context error with the operation and budget that expired,
// for inclusion in a pkg/errors.KindDeadline error's message.
type Error struct {
	Operation string
	Timeout   time.Duration
	Err       error
}

func (e *Error) Error() string {
	if e.Err == context.DeadlineExceeded {
		return "operation '" + e.Operation + "' timed out after " + e.Timeout.String()
	}
	if e.Err == context.Canceled {
		return "operation '" + e.Operation + "' was canceled"
	}
	return "context error in operation '" + e.Operation + "': " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap wraps a context error with operation details, returning err
// unchanged if it isn't a context error.
func Wrap(err error, operation string, timeout time.Duration) error {
	if !IsContextError(err) {
		return err
	}
	return &Error{Operation: operation, Timeout: timeout, Err: err}
}
