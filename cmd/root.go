// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Vendorbridge CLI.
// The serve subcommand runs the MCP stdio proxy; the remaining subcommands
// drive the same core interactively (listing tools, calling one, executing
// vendor instructions locally) or manage the stored API key.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vendorbridge/cli/internal/bridge/httpclient"
	"vendorbridge/cli/internal/config"
	"vendorbridge/cli/internal/logging"
	"vendorbridge/cli/internal/tracing"
)

var (
	showVersion  bool
	flagCloudURL string
	flagAPIKey   string
	flagLogLevel string

	cfg     config.Config
	logger  = zap.NewNop()
	flushFn tracing.Shutdown
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vendorbridge",
	Short: "Local MCP proxy for the Vendorbridge orchestrator",
	Long: `Vendorbridge runs next to an MCP client and forwards tool calls to a remote
orchestrator. When the orchestrator needs to touch a database or a browser that
only this machine can reach, it sends vendor instructions back and Vendorbridge
executes them locally against MongoDB, PostgreSQL or a Chromium-family browser.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			status := "unreachable"
			if httpclient.New(cfg.CloudURL, httpclient.WithLogger(logger)).HealthCheck(ctx) {
				status = "healthy"
			}
			fmt.Printf("vendorbridge %s\norchestrator %s (%s)\n", Version, cfg.CloudURL, status)
			return nil
		}
		return cmd.Help()
	},
}

// setup resolves configuration and installs the logger and tracer before any
// subcommand runs. Flags win over the environment, which wins over config.json.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c = c.ApplyEnv()
	if flagCloudURL != "" {
		c.CloudURL = flagCloudURL
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	cfg = c
	logger = logging.New(cfg.LogLevel)

	shutdown, err := tracing.Setup(cmd.Context(), "vendorbridge", Version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		return nil
	}
	flushFn = shutdown
	return nil
}

// Execute runs the CLI application.
func Execute() {
	err := rootCmd.Execute()
	if flushFn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = flushFn(ctx)
		cancel()
	}
	_ = logger.Sync()
	if err != nil {
		// stdout may be the MCP stream
		pterm.Error.WithWriter(os.Stderr).Println(logging.PresentError("", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version and orchestrator status")
	rootCmd.PersistentFlags().StringVar(&flagCloudURL, "cloud-url", "", "Orchestrator base URL (default from config or "+config.EnvCloudURL+")")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Orchestrator API key (default from "+config.EnvAPIKey+" or the OS keychain)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}
