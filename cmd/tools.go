// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"vendorbridge/cli/internal/httperrors"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the orchestrator exposes for a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := resolveResource()
		if err != nil {
			return err
		}
		p, reg := newProxy(res)
		defer closeSessions(reg)

		stop := startSpinner("Fetching tools")
		tools := p.ListTools(cmd.Context())
		stop()

		if len(tools) == 0 {
			// an empty list also covers an unreachable orchestrator
			if err := newClient().Ping(cmd.Context()); err != nil {
				return httperrors.Present(err, "listing tools", cfg.CloudURL)
			}
			pterm.Warning.Printfln("No tools available for server %q", res.Name)
			return nil
		}

		data := pterm.TableData{{"Tool", "Description"}}
		for _, t := range tools {
			data = append(data, []string{t.Name, firstLine(t.Description)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	addResourceFlags(toolsCmd)
}
