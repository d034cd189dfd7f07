// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// FakeSource replays a canned sequence of entries, for tests that drive
// Waiter.WaitFor without a broker connection.
type FakeSource struct {
	entries []*Entry
	pos     int
	closed  bool
}

// NewFakeSource returns a Source that yields entries in order, then
// blocks on every later call until ctx is done (see Next).
func NewFakeSource(entries ...*Entry) *FakeSource {
	return &FakeSource{entries: entries}
}

// Next returns the next canned entry. Once the canned sequence is
// exhausted, Next blocks until ctx is done, the same as a live Source
// with no new entry yet — tests that want an immediate transport error
// instead should use NewFailingSource.
func (f *FakeSource) Next(ctx context.Context) (*Entry, error) {
	if f.pos < len(f.entries) {
		e := f.entries[f.pos]
		f.pos++
		return e, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// Close marks the fake closed; idempotent.
func (f *FakeSource) Close() error {
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSource) Closed() bool {
	return f.closed
}

// FailingSource always fails Next with a KindTransport error, for tests
// exercising a dead or broken connection.
type FailingSource struct {
	cause error
}

// NewFailingSource builds a Source whose every Next call fails.
func NewFailingSource(cause error) *FailingSource {
	return &FailingSource{cause: cause}
}

// Next always returns a transport error.
func (f *FailingSource) Next(ctx context.Context) (*Entry, error) {
	return nil, errors.Transport("eventlog.fake", f.cause, "source unavailable")
}

// Close is a no-op.
func (f *FailingSource) Close() error { return nil }
