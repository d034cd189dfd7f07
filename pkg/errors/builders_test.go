// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilders_Kind(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"validation", Validation("idset.decode", "bad spec %q", "x-"), KindValidation},
		{"exhaustion", Exhaustion("vnipool.reserve", "insufficient VNIs"), KindExhaustion},
		{"notfound", NotFound("vnipool.release", "unknown job %s", "f1"), KindNotFound},
		{"deadline", Deadline("eventlog.wait", "timed out"), KindDeadline},
		{"transport", Transport("eventlog.wait", stderrors.New("eof"), "read failed"), KindTransport},
		{"device", Device("cxi.enumerate", stderrors.New("ENOENT"), "no devices"), KindDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Run("deadline exceeded", func(t *testing.T) {
		err := FromContext("eventlog.wait", context.DeadlineExceeded)
		require.NotNil(t, err)
		assert.Equal(t, KindDeadline, err.Kind)
	})

	t.Run("canceled", func(t *testing.T) {
		err := FromContext("eventlog.wait", context.Canceled)
		require.NotNil(t, err)
		assert.Equal(t, KindDeadline, err.Kind)
	})

	t.Run("unrelated error returns nil", func(t *testing.T) {
		err := FromContext("eventlog.wait", stderrors.New("boom"))
		assert.Nil(t, err)
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, FromContext("eventlog.wait", nil))
	})
}

func TestIsNotFound_FalseForPlainError(t *testing.T) {
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestIsExhaustion_FalseForPlainError(t *testing.T) {
	assert.False(t, IsExhaustion(stderrors.New("plain")))
}
