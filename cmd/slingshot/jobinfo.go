// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/spf13/cobra"
)

var jobinfoCmd = &cobra.Command{
	Use:   "jobinfo",
	Short: "Print a job's raw cray-slingshot reservation as JSON",
	Args:  cobra.NoArgs,
	RunE:  runJobinfo,
}

func runJobinfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	info, err := parseJobInfo(false)
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
		return errors.NotFound("cmd.jobinfo", "no reservation found for %s", info.JobID)
	}

	out, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(errors.KindValidation, "cmd.jobinfo", err, "encoding reservation")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
