// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var flagCallArgs string

// callCmd runs one tool call through the full proxy flow, vendor
// instructions included, and prints the resulting text.
var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Call one tool end-to-end and print its result",
	Long: `The call command forwards a single tool call to the orchestrator, executes any
vendor instructions it sends back, submits their results and prints the final
text. It exits non-zero when the call reports an error.

Example:
  vendorbridge call find --server mongodb --args '{"collection":"users","limit":5}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := resolveResource()
		if err != nil {
			return err
		}
		toolArgs, err := parseToolArgs(flagCallArgs)
		if err != nil {
			return err
		}
		p, reg := newProxy(res)
		defer closeSessions(reg)

		stop := startSpinner("Calling " + args[0])
		out := p.CallTool(cmd.Context(), args[0], toolArgs)
		stop()

		fmt.Println(out.Text)
		if out.IsError {
			return errors.New("tool call failed")
		}
		return nil
	},
}

// parseToolArgs decodes the --args object. Empty input means no arguments.
func parseToolArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("--args must be a JSON object: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func init() {
	rootCmd.AddCommand(callCmd)
	addResourceFlags(callCmd)
	callCmd.Flags().StringVar(&flagCallArgs, "args", "", "Tool arguments as a JSON object")
}
