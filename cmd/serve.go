// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vendorbridge/cli/internal/logging"
	"vendorbridge/cli/internal/proxy"
)

// serveCmd runs the MCP stdio proxy. Stdout carries the protocol stream, so
// everything else goes to the stderr logger.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP proxy over stdio",
	Long: `The serve command speaks MCP on stdin/stdout for a local client. Tool
listings and calls are forwarded to the orchestrator for the selected server;
vendor instructions sent back are executed against local databases and the
browser, and their results are submitted before the call completes.

Example:
  vendorbridge serve --server mongodb --server-arg cluster=local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := resolveResource()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, reg := newProxy(res)
		defer closeSessions(reg)

		logger.Info("serving",
			zap.String("server", res.Name),
			zap.String("orchestrator", logging.Mask(cfg.CloudURL)))
		srv := proxy.NewServer(p, "vendorbridge-"+res.Name, Version, logger.Named("mcp"))
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addResourceFlags(serveCmd)
}
