// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package shellpals

import (
	"strconv"
	"strings"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// TaskEnv is the subset of flux_cmd_setenvf/flux_cmd_getenv/
// flux_cmd_unsetenv this package needs against one task's own command
// environment (task.init runs once per task, unlike shell.init's
// once-per-shell ShellEnv).
type TaskEnv interface {
	SetEnv(name, value string) error
	GetEnv(name string) (string, bool)
	UnsetEnv(name string) error
}

// TaskInit sets PALS_RANKID on the task's command environment and,
// unless NoEditEnv is set, strips pmiLibraryDir from the task's
// LD_LIBRARY_PATH so libpals's own copy of the PMI shim takes
// precedence over one Flux would otherwise inject — the libpals_task_init
// half of the plugin. pmiLibraryDir is the directory containing Flux's
// pmi_library_path conf value; an empty string means there is nothing
// to strip.
func TaskInit(task TaskEnv, taskRank int, pmiLibraryDir string, noEditEnv bool) error {
	if err := task.SetEnv("PALS_RANKID", strconv.Itoa(taskRank)); err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.taskinit", err, "setenv PALS_RANKID")
	}

	if noEditEnv || pmiLibraryDir == "" {
		return nil
	}

	current, ok := task.GetEnv("LD_LIBRARY_PATH")
	if !ok {
		return nil
	}
	updated, removed := removeAllFromPathList(current, pmiLibraryDir)
	if !removed {
		return nil
	}
	if updated == "" {
		return task.UnsetEnv("LD_LIBRARY_PATH")
	}
	if err := task.SetEnv("LD_LIBRARY_PATH", updated); err != nil {
		return errors.Wrap(errors.KindValidation, "shellpals.taskinit", err, "setenv LD_LIBRARY_PATH")
	}
	return nil
}

// removeAllFromPathList removes every exact occurrence of dir from a
// colon-separated path list, the way remove_path_from_cmd_env's caller
// loops calling it "while found" rather than stopping after the first
// match.
func removeAllFromPathList(list string, dir string) (result string, removed bool) {
	entries := strings.Split(list, ":")
	kept := entries[:0]
	for _, e := range entries {
		if e == dir {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	return strings.Join(kept, ":"), removed
}
