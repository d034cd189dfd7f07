// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package shellslingshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/logging"
)

// reservationContext is the "cray-slingshot" event's context: the list
// of VNIs a jobtap plugin reserved for this job.
type reservationContext struct {
	VNIs []uint32 `json:"vnis"`
}

// tryReserved watches the job's event log for a "cray-slingshot" event
// carrying a VNI reservation, then matches that reservation against the
// CXI services configured on local Cassini NICs. It returns
// handled=false when the optional event was never posted, matching
// cray_slingshot_reserved's rc==1 case.
func tryReserved(ctx context.Context, deps Deps) (handled bool, err error) {
	entry, err := deps.Waiter.WaitFor(ctx, "cray-slingshot")
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	var rc reservationContext
	if err := json.Unmarshal(entry.Context, &rc); err != nil {
		return false, errors.Wrap(errors.KindValidation, "shellslingshot.reserved", err, "parsing cray-slingshot event context")
	}

	var devNames []string
	var svcIDs []int
	tcmask := device.TCMaskDefault

	if deps.Devices != nil {
		devNames, svcIDs, tcmask = matchDevices(ctx, deps.Devices, deps.Log, rc.VNIs)
	}
	if len(devNames) == 0 && deps.Log != nil {
		deps.Log.Warn("no slingshot devices were found")
	}

	if err := deps.Shell.Setenv(envVNIs, joinUint32(rc.VNIs)); err != nil {
		return false, errors.Wrap(errors.KindValidation, "shellslingshot.reserved", err, "setenv %s", envVNIs)
	}
	if len(devNames) > 0 {
		if err := deps.Shell.Setenv(envDevices, strings.Join(devNames, ",")); err != nil {
			return false, errors.Wrap(errors.KindValidation, "shellslingshot.reserved", err, "setenv %s", envDevices)
		}
	}
	if len(svcIDs) > 0 {
		if err := deps.Shell.Setenv(envSvcIDs, joinInt(svcIDs)); err != nil {
			return false, errors.Wrap(errors.KindValidation, "shellslingshot.reserved", err, "setenv %s", envSvcIDs)
		}
	}
	if err := deps.Shell.Setenv(envTCs, fmt.Sprintf("0x%x", tcmask)); err != nil {
		return false, errors.Wrap(errors.KindValidation, "shellslingshot.reserved", err, "setenv %s", envTCs)
	}

	if deps.Log != nil {
		deps.Log.Debug("setting environment for VNI reservation")
	}
	return true, nil
}

// matchDevices enumerates local Cassini NICs, appending each one's name
// to devNames and, for each, the first CXI service matching vnis (or -1
// if none matched) to svcIDs. tcmask starts at device.TCMaskDefault and
// is AND-combined with each matched service's class mask, so a class
// any matched service disallows is removed from the overall result —
// mirroring append_cxi_service_match's "*tcmask &= match_tcmask".
//
// A device failure — enum.ListDevices itself, or enum.Services for one
// device — is logged and skipped rather than aborting the whole
// environment population: a node with no working NICs still must post
// valid (possibly empty) environment variables.
func matchDevices(ctx context.Context, enum device.Enumerator, log logging.Logger, vnis []uint32) (devNames []string, svcIDs []int, tcmask int) {
	tcmask = device.TCMaskDefault

	devices, err := enum.ListDevices(ctx)
	if err != nil {
		if log != nil {
			log.Warn("listing Cassini devices", "error", errors.Device("shellslingshot.matchdevices", err, "listing Cassini devices"))
		}
		return nil, nil, tcmask
	}

	for _, dev := range devices {
		svcs, svcErr := enum.Services(ctx, dev)
		if svcErr != nil {
			if log != nil {
				log.Warn("listing services", "device", dev.Name, "error", errors.Device("shellslingshot.matchdevices", svcErr, "listing services on %s", dev.Name))
			}
			continue
		}

		devNames = append(devNames, dev.Name)

		matchTCMask := device.TCMaskDefault
		matchID := -1
		if svc, ok := device.FindMatch(svcs, vnis); ok {
			matchID = svc.ID
			matchTCMask = device.TCMask(svc)
		}
		svcIDs = append(svcIDs, matchID)
		tcmask &= matchTCMask
	}
	return devNames, svcIDs, tcmask
}

func joinUint32(vals []uint32) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ",")
}

func joinInt(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
