// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"
	"encoding/json"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// Poster appends an entry to a job's event log. internal/jobtap posts the
// "cray-slingshot" event through this interface once a reservation
// outcome is known.
type Poster interface {
	Post(ctx context.Context, eventName string, context any) error
}

// WriterPoster posts entries by encoding and writing them to an
// io.Writer-shaped sink; used by the fake broker in tests and by a CLI
// operating directly on a local log file.
type WriterPoster struct {
	write func([]byte) error
	now   func() float64
}

// NewWriterPoster builds a WriterPoster. now supplies the entry
// timestamp; write delivers the encoded, newline-terminated entry.
func NewWriterPoster(write func([]byte) error, now func() float64) *WriterPoster {
	return &WriterPoster{write: write, now: now}
}

// Post encodes and delivers one entry.
func (p *WriterPoster) Post(ctx context.Context, eventName string, eventContext any) error {
	var raw json.RawMessage
	if eventContext != nil {
		encoded, err := json.Marshal(eventContext)
		if err != nil {
			return errors.Wrap(errors.KindValidation, "eventlog.post", err, "encoding context for %q", eventName)
		}
		raw = encoded
	}

	entry := &Entry{Name: eventName, Timestamp: p.now(), Context: raw}
	line, err := entry.Encode()
	if err != nil {
		return err
	}
	if err := p.write(line); err != nil {
		return errors.Transport("eventlog.post", err, "writing %q entry", eventName)
	}
	return nil
}
