// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package shellslingshot

import (
	"context"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// tryInherit copies the local broker's SLINGSHOT_* environment into the
// shell, if any is set. It returns handled=false (not an error) when the
// broker has no SLINGSHOT_VNIS to offer, matching
// cray_slingshot_inherit's rc==1 case.
func tryInherit(ctx context.Context, deps Deps) (handled bool, err error) {
	env, err := deps.Broker.GetEnv(ctx, []string{envVNIs, envDevices, envSvcIDs, envTCs})
	if err != nil {
		return false, errors.Transport("shellslingshot.inherit", err, "broker.getenv")
	}

	vnis, ok := env[envVNIs]
	if !ok || vnis == "" {
		return false, nil
	}

	if err := deps.Shell.Setenv(envVNIs, vnis); err != nil {
		return false, errors.Wrap(errors.KindValidation, "shellslingshot.inherit", err, "setenv %s", envVNIs)
	}
	for _, name := range []string{envDevices, envSvcIDs, envTCs} {
		if v, ok := env[name]; ok && v != "" {
			if err := deps.Shell.Setenv(name, v); err != nil {
				return false, errors.Wrap(errors.KindValidation, "shellslingshot.inherit", err, "setenv %s", name)
			}
		}
	}

	if deps.Log != nil {
		deps.Log.Debug("using inherited job environment")
	}
	return true, nil
}
