// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package browserexec

import (
	"strings"

	"github.com/go-rod/rod/lib/input"

	"vendorbridge/cli/internal/errors"
)

var namedKeys = map[string]input.Key{
	"enter":      input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"space":      input.Space,
	"arrowup":    input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
	"f1":         input.F1,
	"f2":         input.F2,
	"f3":         input.F3,
	"f4":         input.F4,
	"f5":         input.F5,
	"f6":         input.F6,
	"f7":         input.F7,
	"f8":         input.F8,
	"f9":         input.F9,
	"f10":        input.F10,
	"f11":        input.F11,
	"f12":        input.F12,
}

var modifierKeys = map[string]input.Key{
	"shift":   input.ShiftLeft,
	"control": input.ControlLeft,
	"ctrl":    input.ControlLeft,
	"alt":     input.AltLeft,
	"meta":    input.MetaLeft,
	"command": input.MetaLeft,
	"cmd":     input.MetaLeft,
}

// KeyFor maps a key name such as "Enter", "ArrowDown" or "a" to a rod key.
// Single printable ASCII characters map to themselves.
func KeyFor(name string) (input.Key, bool) {
	if k, ok := namedKeys[strings.ToLower(name)]; ok {
		return k, true
	}
	if k, ok := modifierKeys[strings.ToLower(name)]; ok {
		return k, true
	}
	if len(name) == 1 && name[0] >= 0x20 && name[0] < 0x7f {
		return input.Key(name[0]), true
	}
	return 0, false
}

// ParseCombo splits "Control+Shift+A" into modifiers and the final key.
// A lone "+" is the plus key.
func ParseCombo(combo string) ([]input.Key, input.Key, error) {
	if combo == "" {
		return nil, 0, errors.New(errors.VendorExecution, "empty key")
	}
	parts := []string{combo}
	if combo != "+" {
		parts = strings.Split(combo, "+")
		if strings.HasSuffix(combo, "++") {
			parts = append(parts[:len(parts)-2], "+")
		}
	}

	last := parts[len(parts)-1]
	key, ok := KeyFor(last)
	if !ok {
		return nil, 0, errors.Newf(errors.VendorExecution, "unknown key %q", last)
	}
	var mods []input.Key
	for _, name := range parts[:len(parts)-1] {
		m, ok := modifierKeys[strings.ToLower(name)]
		if !ok {
			return nil, 0, errors.Newf(errors.VendorExecution, "unknown modifier %q", name)
		}
		mods = append(mods, m)
	}
	return mods, key, nil
}
