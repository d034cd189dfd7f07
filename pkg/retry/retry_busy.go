// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"time"
)

// retryDelay is the fixed pause between busy-retry attempts, matching
// the reference CLI's sleep(1) between destroy-service attempts. A var,
// not a const, so tests can shrink it instead of running for real time.
var retryDelay = 1 * time.Second

// BusyFunc attempts an operation that may report some number of
// still-busy targets (services that could not be destroyed because they
// are in use) without itself being an error. A non-nil error aborts the
// retry loop immediately.
type BusyFunc func(ctx context.Context) (busyCount int, err error)

// RetryBusy runs fn at least once, then retries once per second as long
// as fn keeps reporting busyCount > 0 and the elapsed time stays under
// timeoutSeconds. timeoutSeconds <= 0 means "no retry budget": fn runs
// exactly once regardless of the busy count it reports, matching the
// reference epilog/clean's behavior when --retry-busy is not given
// (timeout left at its unset default). Pass ParseFSD's +Inf result to
// retry indefinitely (until fn stops reporting busy or ctx is done).
func RetryBusy(ctx context.Context, timeoutSeconds float64, fn BusyFunc) (int, error) {
	start := time.Now()
	var busyCount int
	var err error

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return busyCount, ctx.Err()
			}
		}

		busyCount, err = fn(ctx)
		if err != nil {
			return busyCount, err
		}

		if busyCount <= 0 {
			return busyCount, nil
		}
		if !(timeoutSeconds > 0 && time.Since(start) < time.Duration(timeoutSeconds*float64(time.Second))) {
			return busyCount, nil
		}
	}
}
