// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging builds the diagnostic logger and masks secrets.
// Diagnostics always go to stderr; stdout belongs to the MCP stream.
// Connection strings, bearer tokens and API keys pass through Mask before
// they reach a log line or an error shown to a user.
package logging

import (
	"regexp"
	"strings"
)

var (
	rePassword = regexp.MustCompile(`(?i)(password=)([^\s;]+)`)
	reToken    = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reDSNPass  = regexp.MustCompile(`(?i)(://)([^:/@\s]+):([^\s/]*)(@)`) // mongodb://user:p@ss@host
	reAPIKey   = regexp.MustCompile(`(?i)(apikey=|api_key=)([^\s;]+)`)
)

// Mask replaces sensitive values in the input string with "*".
// For DSN strings, both username and password are masked.
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reDSNPass.ReplaceAllString(out, "$1*:*$4")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	// Basic env-like pairs key=VALUE; mask common secret keys
	for _, k := range []string{"PGPASSWORD", "VENDORBRIDGE_API_KEY", "ACCESS_TOKEN"} {
		out = strings.ReplaceAll(out, k+"=", k+"=***")
	}
	return out
}
