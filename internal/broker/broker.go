// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package broker abstracts the handful of Flux broker RPCs the
// flux-slingshot CLI needs: watching a job's event log, looking up the
// core count R allotted to the local rank, and reading the configured
// VNI pool universe. It exists so cmd/slingshot can be built and tested
// without an actual Flux instance to connect to — the real
// implementation (flux_open, flux_job_event_watch, job-info.lookup,
// config.get) is an external collaborator, out of scope for this
// package.
package broker

import (
	"context"

	"github.com/flux-framework/flux-coral2/pkg/eventlog"
)

// Broker is the subset of the Flux broker's RPC surface flux-slingshot
// uses.
type Broker interface {
	// EventlogSource opens a watch on jobID's event log
	// (flux_job_event_watch), for a pkg/eventlog.Waiter to read from.
	EventlogSource(ctx context.Context, jobID string) (eventlog.Source, error)

	// CoresForLocalRank returns the number of cores R allotted to the
	// rank the CLI is running on (job-info.lookup "R", then
	// ncores_from_R's per-rank R_lite walk).
	CoresForLocalRank(ctx context.Context, jobID string) (int, error)

	// VNIPoolUniverse returns the cray-slingshot.vni-pool config value
	// (config.get), or the module's configured default if unset.
	VNIPoolUniverse(ctx context.Context) (string, error)

	// Close releases any resources the Broker holds open
	// (flux_close).
	Close() error
}
