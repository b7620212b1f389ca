// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"regexp"
	"strings"
)

// Column describes one table column as reported by information_schema.
type Column struct {
	Name     string   `json:"name"`
	DataType string   `json:"dataType"`
	Nullable bool     `json:"nullable"`
	Default  *string  `json:"default,omitempty"`
	Enum     []string `json:"enum,omitempty"`
}

// TableInfo holds the structure of one table.
type TableInfo struct {
	Table      string   `json:"table"`
	Columns    []Column `json:"columns"`
	PrimaryKey []string `json:"primaryKey"`
}

// Describe reads column, primary key and check constraint metadata for t.
// Check constraints are best effort; a failure there leaves Enum empty.
func (e *Executor) Describe(ctx context.Context, t Table) (*TableInfo, error) {
	info := &TableInfo{Table: t.Schema + "." + t.Name, Columns: []Column{}, PrimaryKey: []string{}}

	rows, err := e.db.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES', column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default); err != nil {
			rows.Close()
			return nil, err
		}
		info.Columns = append(info.Columns, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pkRows, err := e.db.Query(ctx, `
		SELECT kc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc
		  ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kc.ordinal_position`, t.Schema, t.Name)
	if err != nil {
		return nil, err
	}
	for pkRows.Next() {
		var col string
		if err := pkRows.Scan(&col); err == nil {
			info.PrimaryKey = append(info.PrimaryKey, col)
		}
	}
	pkRows.Close()

	checks, err := e.db.Query(ctx, `
		SELECT ccu.column_name, cc.check_clause
		FROM information_schema.check_constraints cc
		JOIN information_schema.constraint_column_usage ccu
		  ON cc.constraint_name = ccu.constraint_name AND cc.constraint_schema = ccu.constraint_schema
		WHERE ccu.table_schema = $1 AND ccu.table_name = $2`, t.Schema, t.Name)
	if err != nil {
		return info, nil
	}
	defer checks.Close()
	enums := map[string][]string{}
	for checks.Next() {
		var col, clause string
		if err := checks.Scan(&col, &clause); err == nil {
			if values := extractEnumValues(clause); len(values) > 0 {
				enums[col] = values
			}
		}
	}
	for i := range info.Columns {
		info.Columns[i].Enum = enums[info.Columns[i].Name]
	}
	return info, nil
}

var (
	inList   = regexp.MustCompile(`(?i)IN\s*\(\s*([^)]+)\)`)
	anyArray = regexp.MustCompile(`(?i)=\s*ANY\s*\(\s*\(?\s*ARRAY\s*\[([^\]]+)\]`)
)

// extractEnumValues extracts enum values from a check constraint clause.
// It supports patterns like:
//   - "status IN ('queued','running','done','failed')"
//   - "status = ANY (ARRAY['queued'::text, 'running'::text, ...])"
func extractEnumValues(checkClause string) []string {
	if match := inList.FindStringSubmatch(checkClause); len(match) > 1 {
		return parseEnumValueList(match[1])
	}
	if match := anyArray.FindStringSubmatch(checkClause); len(match) > 1 {
		return parseEnumValueList(match[1])
	}
	return nil
}

// parseEnumValueList parses a comma-separated list of enum values,
// dropping quotes and ::type casts.
func parseEnumValueList(valueList string) []string {
	var result []string
	for _, val := range strings.Split(valueList, ",") {
		val = strings.TrimSpace(val)
		if idx := strings.Index(val, "::"); idx >= 0 {
			val = val[:idx]
		}
		val = strings.Trim(val, "'\"() ")
		if val != "" {
			result = append(result, val)
		}
	}
	return result
}
