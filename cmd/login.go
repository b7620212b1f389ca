// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"vendorbridge/cli/internal/httperrors"
	"vendorbridge/cli/internal/keychain"
	"vendorbridge/cli/internal/logging"
	"vendorbridge/cli/internal/terminal"
)

const keyPrompt = "Enter orchestrator API key: "

// loginCmd stores the orchestrator API key in the OS keychain.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Store the orchestrator API key in the OS keychain",
	Long: `The login command saves the API key sent as a Bearer token on every
orchestrator request. The key is read from --api-key or prompted for without
echo, then stored in the OS keychain. Keys passed with --api-key or
VENDORBRIDGE_API_KEY at run time take precedence over the stored one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			fmt.Println("   Pass the key with --api-key or VENDORBRIDGE_API_KEY instead.")
			return fmt.Errorf("open keychain: %w", err)
		}

		key := flagAPIKey
		if key == "" {
			key, err = terminal.ReadSecret(keyPrompt)
			if err != nil {
				return err
			}
			if terminal.IsInteractive() {
				terminal.ClearPreviousLines(len(keyPrompt))
			}
		}
		if key == "" {
			return errors.New("API key is required")
		}

		// the key is saved even when the orchestrator is down
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := newClient().Ping(ctx); err != nil {
			pterm.Warning.Printfln("Could not reach %s; saving the key anyway.", httperrors.Host(cfg.CloudURL))
			logger.Debug(logging.PresentError("ping orchestrator", err))
		}

		if err := km.SaveAPIKey(key); err != nil {
			return fmt.Errorf("save API key: %w", err)
		}
		pterm.Success.Printfln("API key %s saved", maskKey(key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
