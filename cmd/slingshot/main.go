// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command slingshot is flux-slingshot: the perilog helper a job's prolog
// and epilog invoke to allocate and destroy the CXI services backing its
// cray-slingshot VNI reservation, plus the list/jobinfo/clean subcommands
// an administrator runs by hand.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/flux-framework/flux-coral2/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	flagJobID  string
	flagUserID string
	flagDryRun bool
	flagDebug  bool

	log logging.Logger = logging.NoOpLogger{}

	rootCmd = &cobra.Command{
		Use:   "flux-slingshot",
		Short: "Manage CXI services for a job's Slingshot VNI reservation",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := logging.DefaultConfig()
			if flagDebug {
				cfg.Level = slog.LevelDebug
			}
			log = logging.NewLogger(cfg)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagJobID, "jobid", "", "job ID (env: FLUX_JOB_ID)")
	rootCmd.PersistentFlags().StringVar(&flagUserID, "userid", "", "job owner's UID (env: FLUX_JOB_USERID)")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "report what would be done without changing device state")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(prologCmd)
	rootCmd.AddCommand(epilogCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(jobinfoCmd)
	rootCmd.AddCommand(cleanCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
