// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package shellpals

import (
	"strconv"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// setEnvironment sets the whole-job PALS_*/PMI_* variables libpals
// reads: node identity, the spool directory and apinfo path, and (when
// a bootstrap was obtained) the control ports and shared secret.
// PMI_CONTROL_PORT is cleared unconditionally first, matching the
// comment in set_environment about an inherited Slurm value being
// stale and misleading here.
func setEnvironment(shell ShellEnv, info ShellInfo, apinfoPath string, pmi PMIBootstrap) error {
	if err := shell.Unsetenv("PMI_CONTROL_PORT"); err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.setenv", err, "unsetenv PMI_CONTROL_PORT")
	}

	sets := map[string]string{
		"PALS_NODEID":    strconv.Itoa(info.ShellRank),
		"PALS_APID":      info.JobID,
		"PALS_SPOOL_DIR": info.TmpDir,
		"PALS_APINFO":    apinfoPath,
	}
	for name, value := range sets {
		if err := shell.Setenv(name, value); err != nil {
			return errors.Wrap(errors.KindValidation, "shellpals.setenv", err, "setenv %s", name)
		}
	}

	if pmi.Valid {
		controlPort := strconv.Itoa(pmi.Ports[0]) + "," + strconv.Itoa(pmi.Ports[1])
		if err := shell.Setenv("PMI_CONTROL_PORT", controlPort); err != nil {
			return errors.Wrap(errors.KindValidation, "shellpals.setenv", err, "setenv PMI_CONTROL_PORT")
		}
		if err := shell.Setenv("PMI_SHARED_SECRET", strconv.FormatUint(pmi.Secret, 10)); err != nil {
			return errors.Wrap(errors.KindValidation, "shellpals.setenv", err, "setenv PMI_SHARED_SECRET")
		}
	}
	return nil
}

// palsEnvNames lists every PALS_*/PMI_* variable this plugin ever
// sets, the same fixed list unset_pals_env clears when the plugin is
// disabled (-o pmi= doesn't name "cray-pals") so libpals doesn't pick
// up a stale value inherited from the broker.
var palsEnvNames = []string{
	"PALS_NODEID",
	"PALS_RANKID",
	"PALS_APINFO",
	"PALS_APID",
	"PALS_SPOOL_DIR",
	"PALS_FD",
	"PALS_DEPTH",
	"PALS_LOCAL_RANKID",
	"PALS_LOCAL_SIZE",
	"PMI_JOBID",
	"PMI_CONTROL_PORT",
	"PMI_SHARED_SECRET",
	"PMI_LOCAL_RANK",
	"PMI_LOCAL_SIZE",
}

// UnsetAll clears every PALS_*/PMI_* variable this package ever sets.
func UnsetAll(shell ShellEnv) error {
	for _, name := range palsEnvNames {
		if err := shell.Unsetenv(name); err != nil {
			return errors.Wrap(errors.KindValidation, "shellpals.unsetall", err, "unsetenv %s", name)
		}
	}
	return nil
}

// Enabled reports whether "cray-pals" appears in a comma-separated
// -o pmi= option list, the check flux_plugin_init makes before
// installing any handler at all.
func Enabled(pmiOpt string) bool {
	for _, name := range splitCSV(pmiOpt) {
		if name == "cray-pals" {
			return true
		}
	}
	return false
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
