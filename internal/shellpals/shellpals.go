// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package shellpals implements the shell-side half of libpals/PMI
// bootstrap for Cray/HPE systems: writing the apinfo file a job's tasks
// read to find their peers, and setting the PALS_*/PMI_* environment
// libpals expects, for both the whole-job init step and each task's
// own launch.
//
// Cray's PMI is not PMI/PMI2/PMIx: the launcher assigns an application
// ID, creates a per-job spool directory on every node, writes an
// apinfo file (pkg/apinfo) into it, sets environment variables for
// every spawned process, and otherwise gets out of the way — libpals
// inside the job's tasks takes it from there.
package shellpals

import (
	"context"
	"path/filepath"
	"time"

	"github.com/flux-framework/flux-coral2/pkg/apinfo"
	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
	"github.com/flux-framework/flux-coral2/pkg/logging"
)

// DefaultApinfoVersion is the apinfo format version written when no
// -o cray-pals.apinfo-version override is given.
const DefaultApinfoVersion = apinfo.V5

// DefaultTimeout bounds the wait for a "cray-pmi-bootstrap" or
// "cray_port_distribution" event; if it expires first, Init fails. A
// "start" event seen before either lets Init proceed without
// PMI_CONTROL_PORT set.
const DefaultTimeout = 10 * time.Second

// apinfoFileName is the fixed name libpals expects inside the job's
// spool directory.
const apinfoFileName = "libpals_apinfo"

// PMIBootstrap holds the control ports and shared secret libpals needs
// to wire up PMI across nodes in a multi-node job, either read from
// the "cray_port_distribution" event or supplied directly via
// -o cray-pals.pmi-bootstrap=[port1,port2,secret].
type PMIBootstrap struct {
	Ports  [2]int
	Secret uint64
	Valid  bool
	// Disabled marks -o cray-pals.pmi-bootstrap=off: bootstrap is
	// skipped entirely, even for a multi-node job.
	Disabled bool
}

// Options mirrors the plugin's -o cray-pals arguments.
type Options struct {
	ApinfoVersion apinfo.Version
	NoEditEnv     bool
	Timeout       time.Duration
	PMI           PMIBootstrap
}

// ShellInfo is the job/shell metadata libpals_init needs, gathered from
// the shell's own info (shell.info, R.execution.nodelist, the
// taskmap, and the jobspec) rather than queried by this package.
type ShellInfo struct {
	ShellSize    int
	ShellRank    int
	NTasks       int
	JobID        string
	TmpDir       string
	Nodelist     []string
	TaskMap      apinfo.TaskMap
	CoresPerTask int
}

// ShellEnv is the subset of flux_shell_setenvf/flux_shell_unsetenv this
// package needs against the whole-job shell environment.
type ShellEnv interface {
	Setenv(name, value string) error
	Unsetenv(name string) error
}

// Deps bundles the collaborators Init needs.
type Deps struct {
	Shell  ShellEnv
	Waiter *eventlog.Waiter
	Log    logging.Logger
}

// Init creates the apinfo file in info.TmpDir and sets the whole-job
// PALS_*/PMI_* environment, the shell.init half of the plugin
// (libpals_init). When the job spans more than one node and bootstrap
// isn't already disabled or pre-supplied, it first waits for the
// "cray-pmi-bootstrap" (or older "cray_port_distribution") event to
// learn the control ports and shared secret.
func Init(ctx context.Context, deps Deps, info ShellInfo, opt Options) error {
	pmi := opt.PMI
	if info.ShellSize > 1 && !pmi.Disabled && !pmi.Valid {
		var err error
		pmi, err = waitForPMIBootstrap(ctx, deps, opt.Timeout)
		if err != nil {
			return err
		}
	}

	path := filepath.Join(info.TmpDir, apinfoFileName)
	if err := createApinfo(path, info, opt.ApinfoVersion); err != nil {
		return err
	}
	return setEnvironment(deps.Shell, info, path, pmi)
}

func createApinfo(path string, info ShellInfo, version apinfo.Version) error {
	doc, err := apinfo.Create(version)
	if err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.createapinfo", err, "creating apinfo v%d object", version)
	}
	if err := doc.SetHostlist(info.Nodelist); err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.createapinfo", err, "setting hostlist")
	}
	if err := doc.SetTaskmap(info.TaskMap, info.CoresPerTask); err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.createapinfo", err, "setting taskmap")
	}
	if err := doc.Check(); err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.createapinfo", err, "apinfo check failed")
	}
	if err := doc.Put(path); err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.createapinfo", err, "writing apinfo object")
	}
	return nil
}
