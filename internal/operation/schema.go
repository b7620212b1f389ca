// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package operation

import (
	"encoding/json"
	"sort"
)

// SchemaSampleSize caps the records a schema inference looks at.
const SchemaSampleSize = 100

const maxExamples = 3

// FieldSchema summarizes one field across sampled records.
type FieldSchema struct {
	// Type is the first observed type; Types lists every observed type.
	Type     string   `json:"type"`
	Types    []string `json:"types"`
	Examples []any    `json:"examples"`
}

// InferSchema summarizes records shaped like decoded JSON objects.
// Up to three distinct example values are kept per field.
func InferSchema(records []map[string]any) map[string]*FieldSchema {
	schema := make(map[string]*FieldSchema)
	seen := make(map[string]map[string]bool)

	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value := rec[key]
			typ := TypeName(value)
			f, ok := schema[key]
			if !ok {
				f = &FieldSchema{Type: typ, Examples: []any{}}
				schema[key] = f
				seen[key] = make(map[string]bool)
			}
			if !contains(f.Types, typ) {
				f.Types = append(f.Types, typ)
			}
			if len(f.Examples) >= maxExamples {
				continue
			}
			fp := fingerprint(value)
			if !seen[key][fp] {
				seen[key][fp] = true
				f.Examples = append(f.Examples, value)
			}
		}
	}
	return schema
}

// TypeName names the JSON type of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case []any:
		return "array"
	}
	return "object"
}

func fingerprint(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
