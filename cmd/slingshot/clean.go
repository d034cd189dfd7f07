// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/flux-framework/flux-coral2/pkg/idset"
	"github.com/flux-framework/flux-coral2/pkg/retry"
	"github.com/spf13/cobra"
)

var flagCleanRetryBusy string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Destroy every CXI service drawn from the configured VNI pool",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&flagCleanRetryBusy, "retry-busy", "", "retry EBUSY destroys for this FSD duration before giving up")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	timeout, err := parseRetryBusy(flagCleanRetryBusy)
	if err != nil {
		return err
	}

	b, err := newBroker()
	if err != nil {
		return err
	}
	defer b.Close()

	universe, err := b.VNIPoolUniverse(ctx)
	if err != nil {
		return err
	}
	pool, err := idset.Decode(universe)
	if err != nil {
		return err
	}
	if flagDryRun {
		log.Warn("vnipool", "universe", universe)
	}

	enum, err := newDeviceEnumerator()
	if err != nil {
		return err
	}

	busyCount, err := retry.RetryBusy(ctx, timeout, func(ctx context.Context) (int, error) {
		return destroyCXIService(ctx, enum, true, func(svc device.Service) bool {
			return device.MatchVNIPool(svc, pool)
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
