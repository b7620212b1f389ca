// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Table is a schema-qualified table reference.
type Table struct {
	Schema string
	Name   string
}

// ParseTable splits "schema.table"; a bare name lives in defaultSchema.
func ParseTable(name, defaultSchema string) Table {
	if schema, table, ok := strings.Cut(name, "."); ok {
		return Table{Schema: schema, Name: table}
	}
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	return Table{Schema: defaultSchema, Name: name}
}

// Sanitize renders the quoted identifier.
func (t Table) Sanitize() string {
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// args accumulates positional parameters.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

var comparisons = map[string]string{
	"$eq":  "=",
	"$ne":  "<>",
	"$gt":  ">",
	"$gte": ">=",
	"$lt":  "<",
	"$lte": "<=",
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// where renders a filter object. Plain values compare for equality, null
// becomes IS NULL, and an operator object supports $eq, $ne, $gt, $gte,
// $lt, $lte and $in. Columns are combined with AND in sorted order.
func where(filter map[string]any, a *args) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}
	var conds []string
	for _, col := range sortedKeys(filter) {
		value := filter[col]
		ops, isOps := value.(map[string]any)
		if !isOps {
			if value == nil {
				conds = append(conds, ident(col)+" IS NULL")
			} else {
				conds = append(conds, fmt.Sprintf("%s = %s", ident(col), a.add(value)))
			}
			continue
		}
		for _, op := range sortedKeys(ops) {
			operand := ops[op]
			if op == "$in" {
				list, ok := operand.([]any)
				if !ok {
					return "", fmt.Errorf("$in on %q expects an array", col)
				}
				conds = append(conds, fmt.Sprintf("%s = ANY(%s)", ident(col), a.add(list)))
				continue
			}
			sqlOp, ok := comparisons[op]
			if !ok {
				return "", fmt.Errorf("unsupported filter operator %s", op)
			}
			conds = append(conds, fmt.Sprintf("%s %s %s", ident(col), sqlOp, a.add(operand)))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

// columns renders a projection: keys with a truthy value are selected.
func columns(projection map[string]any) string {
	var cols []string
	for _, col := range sortedKeys(projection) {
		switch v := projection[col].(type) {
		case bool:
			if !v {
				continue
			}
		case float64:
			if v == 0 {
				continue
			}
		}
		cols = append(cols, ident(col))
	}
	if len(cols) == 0 {
		return "*"
	}
	return strings.Join(cols, ", ")
}

// orderBy renders a sort object ({col: 1|-1}).
func orderBy(sortSpec map[string]any) string {
	if len(sortSpec) == 0 {
		return ""
	}
	var parts []string
	for _, col := range sortedKeys(sortSpec) {
		dir := "ASC"
		if n, ok := sortSpec[col].(float64); ok && n < 0 {
			dir = "DESC"
		}
		if s, ok := sortSpec[col].(string); ok && strings.EqualFold(s, "desc") {
			dir = "DESC"
		}
		parts = append(parts, ident(col)+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// SelectQuery describes a find against one table.
type SelectQuery struct {
	Table      Table
	Filter     map[string]any
	Projection map[string]any
	Sort       map[string]any
	Limit      int
}

// Build renders the statement and its arguments.
func (q SelectQuery) Build() (string, []any, error) {
	var a args
	cond, err := where(q.Filter, &a)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s%s%s", columns(q.Projection), q.Table.Sanitize(), cond, orderBy(q.Sort))
	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return sql, a, nil
}

func buildCount(t Table, filter map[string]any) (string, []any, error) {
	var a args
	cond, err := where(filter, &a)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT count(*) FROM %s%s", t.Sanitize(), cond), a, nil
}

func buildInsert(t Table, doc map[string]any) (string, []any) {
	var a args
	cols := sortedKeys(doc)
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		names[i] = ident(col)
		placeholders[i] = a.add(doc[col])
	}
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", t.Sanitize()), nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Sanitize(), strings.Join(names, ", "), strings.Join(placeholders, ", ")), a
}

// setClause extracts the assignments of an update document. Both
// {"$set": {...}} and a bare {...} are accepted.
func setClause(update map[string]any) (map[string]any, error) {
	if set, ok := update["$set"].(map[string]any); ok {
		if len(update) > 1 {
			return nil, fmt.Errorf("only $set updates are supported")
		}
		return set, nil
	}
	for k := range update {
		if strings.HasPrefix(k, "$") {
			return nil, fmt.Errorf("unsupported update operator %s", k)
		}
	}
	return update, nil
}

func buildUpdate(t Table, filter, set map[string]any) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, fmt.Errorf("update has no assignments")
	}
	var a args
	var assigns []string
	for _, col := range sortedKeys(set) {
		assigns = append(assigns, fmt.Sprintf("%s = %s", ident(col), a.add(set[col])))
	}
	cond, err := where(filter, &a)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("UPDATE %s SET %s%s", t.Sanitize(), strings.Join(assigns, ", "), cond), a, nil
}

// upsertDocument merges the equality part of filter with set.
func upsertDocument(filter, set map[string]any) map[string]any {
	doc := make(map[string]any, len(filter)+len(set))
	for k, v := range filter {
		if _, isOps := v.(map[string]any); !isOps {
			doc[k] = v
		}
	}
	for k, v := range set {
		doc[k] = v
	}
	return doc
}

func buildDelete(t Table, filter map[string]any) (string, []any, error) {
	var a args
	cond, err := where(filter, &a)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s%s", t.Sanitize(), cond), a, nil
}

// buildCreateIndex renders CREATE INDEX for keys like {"email": 1, "createdAt": -1}.
func buildCreateIndex(t Table, name string, keys map[string]any) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("missing required parameter \"keys\"")
	}
	if name == "" {
		name = indexName(t, keys)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", ident(name), t.Sanitize(), strings.TrimPrefix(orderBy(keys), " ORDER BY ")), nil
}

var columnType = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*(\([0-9, ]+\))?(\[\])?( [A-Za-z ]+)?$`)

// buildCreateTable renders CREATE TABLE. Without columns the table gets a
// bigserial primary key named id.
func buildCreateTable(t Table, cols map[string]any) (string, error) {
	if len(cols) == 0 {
		return fmt.Sprintf("CREATE TABLE %s (id bigserial PRIMARY KEY)", t.Sanitize()), nil
	}
	var defs []string
	for _, col := range sortedKeys(cols) {
		typ, _ := cols[col].(string)
		if !columnType.MatchString(typ) {
			return "", fmt.Errorf("invalid column type %q for %q", typ, col)
		}
		defs = append(defs, ident(col)+" "+typ)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.Sanitize(), strings.Join(defs, ", ")), nil
}
