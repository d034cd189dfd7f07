// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package jobtap

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/logging"
	"github.com/flux-framework/flux-coral2/pkg/metrics"
)

// HandlerFunc is one jobtap callback: configuration update, submit, run,
// cleanup, or exception. It replaces the RoundTripper the teacher's
// pkg/middleware chained HTTP requests through.
type HandlerFunc func(ctx context.Context, job *Job) error

// Middleware wraps a HandlerFunc with cross-cutting behavior, the same
// shape the teacher uses for http.RoundTripper middleware.
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes middlewares into one, applied outermost-first so the
// first middleware listed sees the call before any of the others.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// WithLogging logs entry, exit, and duration of every handler call.
func WithLogging(logger logging.Logger, handlerName string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, job *Job) error {
			log := logger.WithContext(ctx).With("handler", handlerName)
			log.Debug("handler starting")

			start := time.Now()
			err := next(ctx, job)
			duration := time.Since(start)

			if err != nil {
				logging.LogError(log, err, handlerName, "duration_ms", duration.Milliseconds())
				return err
			}
			log.Info("handler completed", "duration_ms", duration.Milliseconds())
			return nil
		}
	}
}

// WithMetrics counts every failed handler call through
// collector.RecordDeviceError, since jobtap has no handler-generic
// failure counter of its own; a successful call records nothing. It
// does not record handler duration. Reservation outcomes are recorded
// separately by the pool's own Reserve call.
func WithMetrics(collector metrics.Collector) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, job *Job) error {
			start := time.Now()
			err := next(ctx, job)
			if err != nil {
				collector.RecordDeviceError()
			}
			_ = time.Since(start)
			return err
		}
	}
}

// WithRecover turns a panic inside next into a job exception error
// instead of crashing the single-threaded event loop: a severity-0
// exception is how the reference plugin surfaces any handler failure,
// and an unrecovered Go panic must map onto the same path rather than
// taking the whole jobtap process down with it.
func WithRecover(logger logging.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, job *Job) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panicked",
						"jobid", job.ID,
						"panic", fmt.Sprint(r),
						"stack", string(debug.Stack()),
					)
					err = errors.New(errors.KindValidation, "jobtap.recover", "handler panic: %v", r)
				}
			}()
			return next(ctx, job)
		}
	}
}

// WithTimeout adds a deadline to ctx unless it already has one, the same
// "don't override a caller-supplied deadline" rule pkg/jobcontext
// applies to eventlog waits.
func WithTimeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, job *Job) error {
			if _, hasDeadline := ctx.Deadline(); !hasDeadline && timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return next(ctx, job)
		}
	}
}
