// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vendorbridge/cli/internal/keychain"
)

// logoutCmd removes the stored API key.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored orchestrator API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		if err := km.ClearAPIKey(); err != nil && !errors.Is(err, keychain.ErrNotFound) {
			return err
		}
		fmt.Println("✅ API key removed from the keychain")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
