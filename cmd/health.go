// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"vendorbridge/cli/internal/httperrors"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the orchestrator is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		stop := startSpinner("Checking " + httperrors.Host(cfg.CloudURL))
		err := newClient().Ping(cmd.Context())
		stop()
		if err != nil {
			return httperrors.Present(err, "checking orchestrator health", cfg.CloudURL)
		}
		pterm.Success.Printfln("Orchestrator at %s is healthy", cfg.CloudURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
