// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package operation holds the pieces shared by every vendor operation set:
// loosely typed parameters as decoded from JSON, handler tables keyed by
// operation name, and schema inference over sampled records.
package operation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"vendorbridge/cli/internal/errors"
)

// Params are the operation-specific parameters of a vendor instruction.
type Params map[string]any

// Clone returns a shallow copy so handlers may not alter the instruction.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether key is present and non-null.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the string at key, or "".
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// StringOr returns the string at key, or def when absent or empty.
func (p Params) StringOr(key, def string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return def
}

// RequireString returns the non-empty string at key.
func (p Params) RequireString(key string) (string, error) {
	s := p.String(key)
	if s == "" {
		return "", errors.Newf(errors.VendorExecution, "missing required parameter %q", key)
	}
	return s, nil
}

// Int returns the integer at key, or def when absent or not numeric.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// Bool returns the boolean at key, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}

// Map returns the object at key, or nil.
func (p Params) Map(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// Slice returns the array at key, or nil.
func (p Params) Slice(key string) []any {
	s, _ := p[key].([]any)
	return s
}

// Strings returns the array at key keeping only string elements.
// A single string is treated as a one-element array.
func (p Params) Strings(key string) []string {
	if s, ok := p[key].(string); ok {
		return []string{s}
	}
	var out []string
	for _, v := range p.Slice(key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Handler runs one operation against a target T.
type Handler[T any] func(ctx context.Context, target T, p Params) (any, error)

// Table maps operation names to handlers.
type Table[T any] map[string]Handler[T]

// Names returns the operation names in sorted order.
func (t Table[T]) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the handler for name, or an UnsupportedOperation error
// naming the group and the operation.
func (t Table[T]) Lookup(group, name string) (Handler[T], error) {
	h, ok := t[name]
	if !ok {
		return nil, errors.New(errors.UnsupportedOperation, fmt.Sprintf("Unsupported %s operation: %s", group, name))
	}
	return h, nil
}
