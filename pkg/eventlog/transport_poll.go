// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// DefaultPollInterval is how often PollingSource re-checks its reader for
// newly appended entries when no new data was found on the last pass.
const DefaultPollInterval = 500 * time.Millisecond

// pollReadSize is the chunk size read on each poll pass.
const pollReadSize = 4096

// PollingSource tails a growing, newline-delimited event log by
// periodically re-reading from where the last read left off. It exists
// for transports with no native push notification (a KVS-backed log file
// read through a polling RPC, rather than a live broker connection).
//
// Unlike bufio.Reader.ReadBytes, PollingSource keeps any bytes read past
// the last complete line in its own buffer across polls, so a line still
// being written by the producer when a poll lands mid-write is not lost.
type PollingSource struct {
	r        io.Reader
	interval time.Duration
	closer   io.Closer
	buf      bytes.Buffer
	chunk    []byte
}

// NewPollingSource wraps r, polling at DefaultPollInterval.
func NewPollingSource(r io.Reader) *PollingSource {
	return &PollingSource{r: r, interval: DefaultPollInterval, chunk: make([]byte, pollReadSize)}
}

// WithPollInterval overrides the default poll interval.
func (p *PollingSource) WithPollInterval(d time.Duration) *PollingSource {
	p.interval = d
	return p
}

// WithCloser attaches a Closer invoked by Close, for callers whose
// underlying reader also owns a file handle or connection.
func (p *PollingSource) WithCloser(c io.Closer) *PollingSource {
	p.closer = c
	return p
}

// Next returns the next complete line once available, polling on
// io.EOF (meaning "caught up, nothing new yet" for a growing log) rather
// than treating it as end of stream.
func (p *PollingSource) Next(ctx context.Context) (*Entry, error) {
	if line, ok := p.takeLine(); ok {
		return Decode(line)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		n, err := p.r.Read(p.chunk)
		if n > 0 {
			p.buf.Write(p.chunk[:n])
			if line, ok := p.takeLine(); ok {
				return Decode(line)
			}
		}
		if err != nil && err != io.EOF {
			return nil, errors.Transport("eventlog.poll", err, "reading event log")
		}
	}
}

// takeLine removes and returns one complete newline-terminated line from
// the internal buffer, if one is present.
func (p *PollingSource) takeLine() ([]byte, bool) {
	data := p.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return nil, false
	}
	line := append([]byte(nil), data[:idx+1]...)
	p.buf.Next(idx + 1)
	return line, true
}

// Close releases the attached Closer, if any.
func (p *PollingSource) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
