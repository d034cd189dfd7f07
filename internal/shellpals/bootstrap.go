// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package shellpals

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// portDistributionContext is the "cray_port_distribution" event's
// context: the pair of control ports and the shared secret a
// cray_pals_port_distributor jobtap plugin assigned to this job.
type portDistributionContext struct {
	Ports         [2]int `json:"ports"`
	RandomInteger uint64 `json:"random_integer"`
}

// waitForPMIBootstrap watches the job's event log for a
// "cray-pmi-bootstrap" event, falling back to the older
// "cray_port_distribution" spelling of the same occurrence, under
// timeout. If the "start" event (or a fatal exception) is seen first,
// the cray_pals_port_distributor jobtap plugin is assumed not to be
// loaded: this returns a zero, invalid PMIBootstrap and no error, so
// task launch proceeds without PMI_CONTROL_PORT set — exactly
// read_future's "module not loaded?" case.
func waitForPMIBootstrap(ctx context.Context, deps Deps, timeout time.Duration) (PMIBootstrap, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entry, err := deps.Waiter.WaitForAny(waitCtx, "cray-pmi-bootstrap", "cray_port_distribution")
	if err != nil {
		return PMIBootstrap{}, errors.Wrap(errors.KindDeadline, "shellpals.bootstrap", err, "reading PMI bootstrap info from eventlog")
	}
	if entry == nil {
		if deps.Log != nil {
			deps.Log.Debug("cray_pals_port_distributor jobtap plugin is not loaded: proceeding without PMI_CONTROL_PORT set")
		}
		return PMIBootstrap{}, nil
	}

	var pd portDistributionContext
	if err := json.Unmarshal(entry.Context, &pd); err != nil {
		return PMIBootstrap{}, errors.Wrap(errors.KindValidation, "shellpals.bootstrap", err, "parsing cray_port_distribution event context")
	}
	return PMIBootstrap{Ports: pd.Ports, Secret: pd.RandomInteger, Valid: true}, nil
}
