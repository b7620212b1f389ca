// Package main is the entry point for the Vendorbridge CLI application.
// It runs the local MCP proxy and its supporting commands.
package main

import (
	"vendorbridge/cli/cmd"
)

func main() {
	cmd.Execute()
}
