// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("with config", func(t *testing.T) {
		logger := NewLogger(&Config{Level: slog.LevelDebug, Format: FormatJSON, Output: os.Stdout, Component: "test"})
		require.NotNil(t, logger)
		_, ok := logger.(*slogLogger)
		assert.True(t, ok)
	})

	t.Run("with nil config falls back to defaults", func(t *testing.T) {
		logger := NewLogger(nil)
		require.NotNil(t, logger)
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NotNil(t, config)
	assert.Equal(t, slog.LevelInfo, config.Level)
	assert.Equal(t, FormatText, config.Format)
	assert.Equal(t, os.Stderr, config.Output)
}

func TestSlogLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: slog.LevelDebug, Format: FormatJSON, Output: &buf, Component: "jobtap"})

	logger.Info("reserved vnis", "jobid", "f1", "count", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reserved vnis", entry["msg"])
	assert.Equal(t, "jobtap", entry["component"])
	assert.Equal(t, "f1", entry["jobid"])
}

func TestSanitizeLogValue_StripsControlCharacters(t *testing.T) {
	got := sanitizeLogValue("off\ndisabled by user request\t")
	assert.Equal(t, "off disabled by user request ", got)
	assert.NotContains(t, got, "\n")
}

func TestSlogLogger_WithContext_AddsJobID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: slog.LevelDebug, Format: FormatJSON, Output: &buf, Component: "jobtap"})

	ctx := context.WithValue(context.Background(), JobIDKey, "f42")
	logger.WithContext(ctx).Info("released")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "f42", entry["jobid"])
}

func TestNoOpLogger_DoesNothing(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Info("ignored")
	l.Debug("ignored")
	l.Warn("ignored")
	l.Error("ignored")
	assert.Equal(t, NoOpLogger{}, l.With("k", "v"))
}
