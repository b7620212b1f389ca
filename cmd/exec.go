// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vendorbridge/cli/internal/bridge/model"
)

var flagExecFile string

// execCmd runs vendor instructions from a file locally, without the
// orchestrator. Useful for checking that a database or the browser is
// reachable from this machine.
var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute vendor instructions from a file locally",
	Long: `The exec command reads one vendor instruction object, or an array of them,
from --file (use - for stdin), executes them in order through the local
dispatcher and prints the outcomes as JSON. No orchestrator is contacted.

Example instruction:
  {"type":"mongodb","operation":"find","connectionString":"mongodb://localhost:27017/app",
   "parameters":{"collection":"users","limit":5}}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagExecFile == "" {
			return errors.New("--file is required")
		}
		data, err := readInput(flagExecFile)
		if err != nil {
			return err
		}
		instructions, err := decodeInstructions(data)
		if err != nil {
			return err
		}

		d, reg := newDispatcher()
		defer closeSessions(reg)

		outcomes := d.Run(cmd.Context(), instructions)
		out, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// decodeInstructions accepts a single instruction object or an array.
func decodeInstructions(data []byte) ([]model.VendorInstruction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no instructions given")
	}
	if data[0] == '[' {
		var list []model.VendorInstruction
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode instructions: %w", err)
		}
		return list, nil
	}
	var one model.VendorInstruction
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode instruction: %w", err)
	}
	return []model.VendorInstruction{one}, nil
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVarP(&flagExecFile, "file", "f", "", "Instruction JSON file, or - for stdin")
}
