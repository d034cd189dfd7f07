// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"
	"slices"
	"time"

	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/jobcontext"
)

// Waiter consumes entries from a Source looking for one named event.
type Waiter struct {
	source Source
}

// NewWaiter wraps src in a Waiter.
func NewWaiter(src Source) *Waiter {
	return &Waiter{source: src}
}

// WaitFor reads entries from the underlying Source until eventName is
// seen, a surpassing event ends the search with no match, or the overall
// deadline carried by ctx expires.
//
// Two event classes surpass the search instead of merely being skipped:
// "start" (the job has begun running without the awaited event having
// occurred, so it never will) and a severity-0 "exception" (the job is
// being torn down). Both return (nil, nil): the caller's optional event
// simply never happened, which is not itself an error.
//
// The deadline is recomputed from ctx on every iteration rather than
// reset per read, so N slow reads can't extend the wait past the
// caller's original budget.
func (w *Waiter) WaitFor(ctx context.Context, eventName string) (*Entry, error) {
	return w.WaitForAny(ctx, eventName)
}

// WaitForAny is WaitFor generalized to a list of event names: it
// returns the first entry read whose name appears anywhere in
// eventNames, whatever the order of eventNames, scanning the Source exactly once so no entry is
// skipped or re-consumed between names. Callers that accept either of
// two event spellings for the same occurrence (a renamed event still
// supported for rollout compatibility) pass both names instead of
// calling WaitFor twice.
func (w *Waiter) WaitForAny(ctx context.Context, eventNames ...string) (*Entry, error) {
	deadline, hasDeadline := ctx.Deadline()

	for {
		if hasDeadline {
			remaining, _ := jobcontext.RemainingTimeout(deadline, time.Now())
			if remaining <= 0 {
				return nil, errors.Deadline("eventlog.wait", "timed out waiting for %q", eventNames)
			}
		}

		entry, err := w.source.Next(ctx)
		if err != nil {
			if wrapped := errors.FromContext("eventlog.wait", err); wrapped != nil {
				return nil, wrapped
			}
			return nil, errors.Transport("eventlog.wait", err, "reading next entry")
		}

		switch entry.Name {
		case "start":
			return nil, nil
		case "exception":
			if severity, ok := entry.Severity(); ok && severity == 0 {
				return nil, nil
			}
		default:
			if slices.Contains(eventNames, entry.Name) {
				return entry, nil
			}
		}
	}
}
