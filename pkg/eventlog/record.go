// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package eventlog decodes and waits on entries from a job's event log —
// the newline-delimited JSON stream a jobtap plugin posts state-change
// and informational events to, and that shell plugins watch to learn
// what jobtap decided on their job's behalf.
package eventlog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// Entry is one decoded event log record.
type Entry struct {
	Name      string          `json:"name"`
	Timestamp float64         `json:"timestamp"`
	Context   json.RawMessage `json:"context,omitempty"`
}

// rawEntry mirrors Entry's wire shape for decoding, so an absent name or
// timestamp field can be distinguished from a present-but-zero one.
type rawEntry struct {
	Name      *string         `json:"name"`
	Timestamp *float64        `json:"timestamp"`
	Context   json.RawMessage `json:"context"`
}

// Decode parses one event log line. The line must be valid JSON with
// exactly one trailing newline and nothing else — the wire framing a
// jobtap event log actually uses, so a caller handed a raw socket or file
// read can detect truncated records instead of silently merging them.
func Decode(line []byte) (*Entry, error) {
	if !bytes.HasSuffix(line, []byte("\n")) {
		return nil, errors.Validation("eventlog.decode", "entry missing trailing newline")
	}
	body := line[:len(line)-1]
	if bytes.ContainsRune(body, '\n') {
		return nil, errors.Validation("eventlog.decode", "entry contains more than one line")
	}

	var raw rawEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(errors.KindValidation, "eventlog.decode", err, "malformed JSON entry")
	}

	entry := &Entry{Context: raw.Context}
	if raw.Name != nil {
		entry.Name = *raw.Name
	}
	if raw.Timestamp != nil {
		entry.Timestamp = *raw.Timestamp
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks the structural invariants an entry must satisfy: a
// non-empty name, and — when present — a context that decodes to a JSON
// object rather than a scalar or array.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.Validation("eventlog.validate", "entry missing name")
	}
	if len(e.Context) == 0 {
		return nil
	}
	trimmed := bytes.TrimSpace(e.Context)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.Validation("eventlog.validate", "entry context must be a JSON object")
	}
	return nil
}

// Encode renders the entry back to its newline-terminated wire form.
func (e *Entry) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	out, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(errors.KindValidation, "eventlog.encode", err, "marshaling entry")
	}
	return append(out, '\n'), nil
}

// Severity extracts the "severity" integer field from the entry's
// context, if any. An exception entry with severity 0 is fatal to the
// job and ends any in-progress wait without a match, per Severity's
// use in Waiter.WaitFor.
func (e *Entry) Severity() (int, bool) {
	if len(e.Context) == 0 {
		return 0, false
	}
	var fields struct {
		Severity *int `json:"severity"`
	}
	if err := json.Unmarshal(e.Context, &fields); err != nil || fields.Severity == nil {
		return 0, false
	}
	return *fields.Severity, true
}
