// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/flux-framework/flux-coral2/pkg/retry"
	"github.com/spf13/cobra"
)

var flagEpilogRetryBusy string

var epilogCmd = &cobra.Command{
	Use:   "epilog",
	Short: "Destroy the CXI services backing a job's Slingshot VNI reservation",
	Args:  cobra.NoArgs,
	RunE:  runEpilog,
}

func init() {
	epilogCmd.Flags().StringVar(&flagEpilogRetryBusy, "retry-busy", "", "retry EBUSY destroys for this FSD duration before giving up")
}

func runEpilog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	info, err := parseJobInfo(true)
	if err != nil {
		return err
	}

	timeout, err := parseRetryBusy(flagEpilogRetryBusy)
	if err != nil {
		return err
	}

	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := lookupReservation(ctx, b, info.JobID)
	if err != nil {
		return err
	}
	if res == nil {
		log.Warn("no cray-slingshot reservation was found", "jobid", info.JobID)
		return nil
	}
	vnis, err := parseReservationVNIs(res)
	if err != nil {
		return err
	}
	if len(vnis) == 0 {
		return nil
	}

	enum, err := newDeviceEnumerator()
	if err != nil {
		return err
	}

	busyCount, err := retry.RetryBusy(ctx, timeout, func(ctx context.Context) (int, error) {
		return destroyCXIService(ctx, enum, false, func(svc device.Service) bool {
			return device.MatchReservation(svc, info.UID, vnis)
		})
	})
	if err != nil {
		return err
	}
	if busyCount > 0 && timeout > 0 {
		return fmt.Errorf("%d CXI service(s) still busy after retrying", busyCount)
	}
	return nil
}

// parseRetryBusy parses the --retry-busy flag, treating an
// unset flag as "no retry budget" (0), matching the reference CLI's
// optparse_hasopt guard around fsd_parse_duration.
func parseRetryBusy(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return retry.ParseFSD(s)
}

// destroyCXIService destroys every service matching matchFn on every
// enumerated device (all == true) or just the first match per device,
// and returns the number of EBUSY failures encountered
// (destroy_cxi_service).
func destroyCXIService(ctx context.Context, enum device.Enumerator, all bool, matchFn func(device.Service) bool) (int, error) {
	devices, err := enum.ListDevices(ctx)
	if err != nil {
		return 0, err
	}

	busyCount := 0
	for _, dev := range devices {
		n, err := destroyCXIServiceDevice(ctx, enum, dev, all, matchFn)
		if err != nil {
			return busyCount, err
		}
		busyCount += n
	}
	return busyCount, nil
}

func destroyCXIServiceDevice(ctx context.Context, enum device.Enumerator, dev device.Device, all bool, matchFn func(device.Service) bool) (int, error) {
	services, err := enum.Services(ctx, dev)
	if err != nil {
		log.Warn("cxil_get_svc_list", "device", dev.Name, "error", err)
		return 0, nil
	}

	busyCount := 0
	matchCount := 0
	for _, svc := range services {
		if !(all || matchCount == 0) {
			break
		}
		if !matchFn(svc) {
			continue
		}
		matchCount++
		if flagDryRun {
			log.Warn("dry-run: would destroy cxi service", "device", dev.Name, "svc_id", svc.ID)
			continue
		}
		if err := enum.Destroy(ctx, dev, svc.ID); err != nil {
			if isBusyErr(err) {
				busyCount++
				continue
			}
			log.Warn("cxil_destroy_svc", "device", dev.Name, "svc_id", svc.ID, "error", err)
			continue
		}
		log.Warn("destroy svc_id", "device", dev.Name, "svc_id", svc.ID)
	}
	return busyCount, nil
}
