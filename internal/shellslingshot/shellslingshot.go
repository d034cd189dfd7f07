// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package shellslingshot implements the shell-side half of Slingshot VNI
// plumbing: populating a job's SLINGSHOT_* environment so the Cray
// MPICH/libfabric stack inside the job's tasks picks the right VNIs,
// CXI services, and traffic classes.
//
// There are three ways this environment can be populated, tried in
// order until one succeeds:
//
//   - Inherit: the local broker already carries SLINGSHOT_* (set by an
//     enclosing instance or a foreign resource manager); copy it
//     through unchanged.
//   - Reserved: a cray-slingshot jobtap plugin posted a VNI reservation
//     to the job's event log; find the CXI services on local Cassini
//     NICs that were provisioned for it and derive the matching
//     traffic-class mask.
//   - Default: neither applies. Clear SLINGSHOT_* and let the
//     application sort itself out.
//
// This mirrors the reference shell plugin's shell_post_init_cb cascade
// (cray_slingshot_inherit, then cray_slingshot_reserved), each returning
// "handled" (stop here), "not applicable" (try the next method), or a
// fatal error.
package shellslingshot

import (
	"context"

	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
	"github.com/flux-framework/flux-coral2/pkg/logging"
)

// envVNIs, envDevices, envSvcIDs, envTCs name the four environment
// variables this package ever sets or clears.
const (
	envVNIs    = "SLINGSHOT_VNIS"
	envDevices = "SLINGSHOT_DEVICES"
	envSvcIDs  = "SLINGSHOT_SVC_IDS"
	envTCs     = "SLINGSHOT_TCS"
)

// ShellEnv is the subset of flux_shell_setenvf/flux_shell_unsetenv this
// package needs against a running job shell.
type ShellEnv interface {
	Setenv(name, value string) error
	Unsetenv(name string) error
}

// BrokerEnv fetches named environment variables from the local broker
// (broker.getenv). GetEnv returns only the names that were present and
// permitted: a name absent from the result means "not set", which is
// not itself an error — the reference plugin tolerates EPERM and ENOSYS
// from broker.getenv the same way, treating a broker that refuses or
// doesn't support the RPC as "nothing to inherit."
type BrokerEnv interface {
	GetEnv(ctx context.Context, names []string) (map[string]string, error)
}

// Options mirrors the plugin's -o cray-slingshot arguments.
type Options struct {
	Off      bool
	VNICount int
}

// Deps bundles the collaborators Run needs: the local shell environment
// to populate, the broker to query for inherited variables, the
// eventlog waiter to watch for a VNI reservation, and the Cassini
// device enumerator to match CXI services against it.
type Deps struct {
	Shell   ShellEnv
	Broker  BrokerEnv
	Waiter  *eventlog.Waiter
	Devices device.Enumerator
	Log     logging.Logger
}

// Run clears any stale SLINGSHOT_* environment, then tries inherit mode
// and reserved mode in order, falling back to default (cleared) mode if
// neither applies. It returns an error only for a fatal failure in one
// of the two active modes — a mode simply not applying is not an error.
func Run(ctx context.Context, deps Deps, opt Options) error {
	for _, name := range []string{envVNIs, envDevices, envSvcIDs, envTCs} {
		if err := deps.Shell.Unsetenv(name); err != nil {
			return errors.Wrap(errors.KindValidation, "shellslingshot.run", err, "clearing %s", name)
		}
	}
	if opt.Off {
		return nil
	}

	handled, err := tryInherit(ctx, deps)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	handled, err = tryReserved(ctx, deps)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	if deps.Log != nil {
		deps.Log.Debug("no job environment is set")
	}
	return nil
}
