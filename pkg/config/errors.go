// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrInvalidVNIsPerJob describes a vnis-per-job outside
	// [0, MaxVNIsPerJob]. Validate does not return it; it reports that
	// case with its own KindValidation error.
	ErrInvalidVNIsPerJob = errors.New("vnis-per-job must be between 0 and 4")

	// ErrMissingVNIPool describes a vni-pool that is present but empty.
	// Nothing in this package returns it: an empty vni-pool is accepted
	// and leaves the pool unconfigured.
	ErrMissingVNIPool = errors.New("vni-pool must not be empty when present")
)
