// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// delayedWriter feeds bytes to a PollingSource across several Read calls,
// simulating a log file a producer is still appending to.
type delayedWriter struct {
	chunks [][]byte
	pos    int
}

func (d *delayedWriter) Read(p []byte) (int, error) {
	if d.pos >= len(d.chunks) {
		return 0, io.EOF
	}
	chunk := d.chunks[d.pos]
	d.pos++
	n := copy(p, chunk)
	return n, nil
}

func TestPollingSource_ReadsCompleteLine(t *testing.T) {
	r := &delayedWriter{chunks: [][]byte{[]byte(`{"name":"start","timestamp":0}` + "\n")}}
	src := NewPollingSource(r).WithPollInterval(5 * time.Millisecond)

	entry, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "start", entry.Name)
}

func TestPollingSource_AssemblesLineAcrossReads(t *testing.T) {
	r := &delayedWriter{chunks: [][]byte{
		[]byte(`{"name":"cray`),
		[]byte(`-slingshot","timestamp":1}` + "\n"),
	}}
	src := NewPollingSource(r).WithPollInterval(5 * time.Millisecond)

	entry, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cray-slingshot", entry.Name)
}

func TestPollingSource_TwoEntriesInOneChunk(t *testing.T) {
	r := &delayedWriter{chunks: [][]byte{
		[]byte(`{"name":"a","timestamp":0}` + "\n" + `{"name":"b","timestamp":1}` + "\n"),
	}}
	src := NewPollingSource(r).WithPollInterval(5 * time.Millisecond)

	first, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", first.Name)

	second, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", second.Name)
}

func TestPollingSource_ContextCanceledWhileWaiting(t *testing.T) {
	r := &delayedWriter{}
	src := NewPollingSource(r).WithPollInterval(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.Next(ctx)
	assert.Error(t, err)
}

type closeTracker struct{ closed bool }

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestPollingSource_CloseInvokesCloser(t *testing.T) {
	tracker := &closeTracker{}
	src := NewPollingSource(&delayedWriter{}).WithCloser(tracker)
	require.NoError(t, src.Close())
	assert.True(t, tracker.closed)
}
