// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/spf13/cobra"
)

var prologCmd = &cobra.Command{
	Use:   "prolog",
	Short: "Allocate CXI services for a job's Slingshot VNI reservation",
	Args:  cobra.NoArgs,
	RunE:  runProlog,
}

func runProlog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	info, err := parseJobInfo(true)
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

	ncores, err := b.CoresForLocalRank(ctx, info.JobID)
	if err != nil {
		return err
	}

	enum, err := newDeviceEnumerator()
	if err != nil {
		return err
	}

	count, err := allocateCXIService(ctx, enum, info.UID, vnis, ncores)
	if err != nil {
		return err
	}
	if count == 0 {
		log.Warn("no CXI devices", "uid", info.UID, "ncores", ncores, "vnis", vnis)
	}
	return nil
}

// allocateCXIService allocates a CXI service restricted to uid and vnis,
// sized for ncores, on every enumerated device. It returns the number of
// devices a service was successfully allocated on (allocate_cxi_service).
func allocateCXIService(ctx context.Context, enum device.Enumerator, uid int, vnis []uint32, ncores int) (int, error) {
	devices, err := enum.ListDevices(ctx)
	if err != nil {
		return 0, err
	}

	spec := device.ServiceSpec{UID: uid, VNIs: vnis, NCores: ncores}
	count := 0
	for _, dev := range devices {
		if flagDryRun {
			log.Warn("dry-run: would allocate cxi service", "device", dev.Name, "uid", uid, "ncores", ncores, "vnis", vnis)
			count++
			continue
		}
		id, err := enum.Allocate(ctx, dev, spec)
		if err != nil {
			return count, err
		}
		log.Warn("alloc cxi_svc", "device", dev.Name, "svc_id", id, "uid", uid, "ncores", ncores, "vnis", vnis)
		count++
	}
	return count, nil
}
