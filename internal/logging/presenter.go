// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"vendorbridge/cli/internal/errors"
)

// PresentError renders err for a person at the terminal: kind prefixes are
// dropped and connection strings masked. action, when set, leads the line.
func PresentError(action string, err error) string {
	if err == nil {
		return ""
	}
	msg := Mask(errors.Message(err))
	if action == "" {
		return msg
	}
	return action + ": " + msg
}
