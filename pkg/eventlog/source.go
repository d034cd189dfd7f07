// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import "context"

// Source delivers successive event log entries. Next blocks until an
// entry is available, ctx is done, or the underlying transport is
// exhausted (io.EOF-equivalent, reported as a KindTransport error).
//
// Implementations: transport_websocket.go (a live broker connection),
// transport_poll.go (periodic re-reads of a growing log, for transports
// without native push), and fake.go (a canned sequence, for tests).
type Source interface {
	Next(ctx context.Context) (*Entry, error)
	Close() error
}
