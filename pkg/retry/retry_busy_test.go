// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryBusy_NoTimeoutRunsOnce(t *testing.T) {
	calls := 0
	busyCount, err := RetryBusy(context.Background(), 0, func(ctx context.Context) (int, error) {
		calls++
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, busyCount)
}

func TestRetryBusy_StopsAsSoonAsNotBusy(t *testing.T) {
	calls := 0
	busyCount, err := RetryBusy(context.Background(), 0, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, busyCount)
}

func TestRetryBusy_RetriesUntilClear(t *testing.T) {
	saveDelay := retryDelay
	t.Cleanup(func() { retryDelay = saveDelay })
	retryDelay = time.Millisecond

	calls := 0
	busyCount, err := RetryBusy(context.Background(), 10, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 1, nil
		}
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, busyCount)
}

func TestRetryBusy_StopsOnError(t *testing.T) {
	wantErr := errors.New("destroy failed")
	_, err := RetryBusy(context.Background(), 10, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestRetryBusy_StopsOnContextCancel(t *testing.T) {
	saveDelay := retryDelay
	t.Cleanup(func() { retryDelay = saveDelay })
	retryDelay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := RetryBusy(ctx, 10, func(ctx context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
