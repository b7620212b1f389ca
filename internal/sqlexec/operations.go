// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/logging"
	"vendorbridge/cli/internal/operation"
)

// Group names the operation set in error messages.
const Group = "PostgreSQL"

const defaultFindLimit = 10

// Target is what every PostgreSQL operation runs against.
type Target struct {
	Exec     *Executor
	Identity string
	// Catalog is the database the pool is connected to.
	Catalog string
}

// Operations is the PostgreSQL operation table.
var Operations = operation.Table[Target]{
	"connect": connect,

	"listDatabases":         listDatabases,
	"listCollections":       listCollections,
	"collectionSchema":      collectionSchema,
	"collectionStorageSize": collectionStorageSize,
	"dbStats":               dbStats,
	"explain":               explain,
	"logs":                  logs,

	"find":        find,
	"count":       count,
	"aggregate":   aggregate,
	"listIndexes": listIndexes,
	"export":      export,
	"query":       query,

	"insertMany":       insertMany,
	"createIndex":      createIndex,
	"createCollection": createCollection,

	"updateMany":       updateMany,
	"renameCollection": renameCollection,
	"execute":          execute,

	"deleteMany":     deleteMany,
	"dropCollection": dropCollection,
	"dropDatabase":   dropDatabase,
}

// Execute runs op against db, which must be connected to catalog.
func Execute(ctx context.Context, db DB, log *zap.Logger, identity, catalog, op string, p operation.Params) (any, error) {
	h, err := Operations.Lookup(Group, op)
	if err != nil {
		return nil, err
	}
	return h(ctx, Target{Exec: New(db, log), Identity: identity, Catalog: catalog}, p)
}

func table(p operation.Params) (Table, error) {
	name, err := p.RequireString("collection")
	if err != nil {
		return Table{}, err
	}
	return ParseTable(name, p.StringOr("schema", "public")), nil
}

func failed(op string, err error) error {
	return errors.Wrap(errors.VendorExecution, op, err)
}

func invalid(err error) error {
	return errors.Wrap(errors.VendorExecution, "invalid parameters", err)
}

func connect(_ context.Context, t Target, _ operation.Params) (any, error) {
	return map[string]any{"connected": true, "connectionString": logging.Mask(t.Identity)}, nil
}

func column[T any](ctx context.Context, t Target, sql string, args ...any) ([]T, error) {
	rows, err := t.Exec.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[T])
	if out == nil {
		out = []T{}
	}
	return out, err
}

func listDatabases(ctx context.Context, t Target, _ operation.Params) (any, error) {
	names, err := column[string](ctx, t, `SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname`)
	if err != nil {
		return nil, failed("listDatabases", err)
	}
	return map[string]any{"databases": names}, nil
}

func listCollections(ctx context.Context, t Target, p operation.Params) (any, error) {
	names, err := column[string](ctx, t, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, p.StringOr("schema", "public"))
	if err != nil {
		return nil, failed("listCollections", err)
	}
	return map[string]any{"collections": names}, nil
}

func collectionSchema(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	info, err := t.Exec.Describe(ctx, tbl)
	if err != nil {
		return nil, failed("collectionSchema", err)
	}
	sql, args, err := SelectQuery{Table: tbl, Limit: operation.SchemaSampleSize}.Build()
	if err != nil {
		return nil, invalid(err)
	}
	res, err := t.Exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, failed("collectionSchema", err)
	}
	return map[string]any{
		"schema":     operation.InferSchema(res.Records()),
		"columns":    info.Columns,
		"primaryKey": info.PrimaryKey,
	}, nil
}

func collectionStorageSize(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	var storage, size, n int64
	err = t.Exec.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT pg_total_relation_size($1::regclass), pg_relation_size($1::regclass), (SELECT count(*) FROM %s)`,
		tbl.Sanitize()), tbl.Sanitize()).Scan(&storage, &size, &n)
	if err != nil {
		return nil, failed("Failed to get collection storage size", err)
	}
	return map[string]any{"storageSize": storage, "size": size, "count": n}, nil
}

func dbStats(ctx context.Context, t Target, _ operation.Params) (any, error) {
	var (
		name       string
		dataSize   int64
		tables     int64
		indexes    int64
		numBackend int64
	)
	err := t.Exec.db.QueryRow(ctx, `
		SELECT current_database(),
		       pg_database_size(current_database()),
		       (SELECT count(*) FROM pg_stat_user_tables),
		       (SELECT count(*) FROM pg_stat_user_indexes),
		       (SELECT numbackends FROM pg_stat_database WHERE datname = current_database())`).
		Scan(&name, &dataSize, &tables, &indexes, &numBackend)
	if err != nil {
		return nil, failed("dbStats", err)
	}
	return map[string]any{"stats": map[string]any{
		"db":          name,
		"dataSize":    dataSize,
		"collections": tables,
		"indexes":     indexes,
		"connections": numBackend,
	}}, nil
}

// explainTarget renders the statement to explain: a raw "sql" parameter or
// the first entry of "method" ({name: find|count|aggregate, ...}).
func explainTarget(p operation.Params) (string, []any, error) {
	if sql := p.String("sql"); sql != "" {
		return sql, nil, nil
	}
	methods := p.Slice("method")
	if len(methods) == 0 {
		return "", nil, fmt.Errorf("missing required parameter \"method\"")
	}
	tbl, err := table(p)
	if err != nil {
		return "", nil, err
	}
	m, _ := methods[0].(map[string]any)
	method := operation.Params(m)
	switch method.String("name") {
	case "find":
		return SelectQuery{Table: tbl, Filter: method.Map("filter")}.Build()
	case "count":
		return buildCount(tbl, method.Map("query"))
	case "aggregate":
		if sql := method.String("sql"); sql != "" {
			return sql, nil, nil
		}
	}
	return "", nil, fmt.Errorf("Unsupported explain method")
}

func explain(ctx context.Context, t Target, p operation.Params) (any, error) {
	sql, args, err := explainTarget(p)
	if err != nil {
		return nil, invalid(err)
	}
	var plan any
	if err := t.Exec.db.QueryRow(ctx, "EXPLAIN (FORMAT JSON) "+sql, args...).Scan(&plan); err != nil {
		return nil, failed("explain", err)
	}
	return map[string]any{"plan": plan}, nil
}

func logs(context.Context, Target, operation.Params) (any, error) {
	return map[string]any{
		"logs": []string{},
		"note": "Server logs are not exposed over a PostgreSQL connection",
	}, nil
}

func selectFrom(p operation.Params, tbl Table) SelectQuery {
	return SelectQuery{
		Table:      tbl,
		Filter:     p.Map("filter"),
		Projection: p.Map("projection"),
		Sort:       p.Map("sort"),
		Limit:      p.Int("limit", defaultFindLimit),
	}
}

func find(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	sql, args, err := selectFrom(p, tbl).Build()
	if err != nil {
		return nil, invalid(err)
	}
	res, err := t.Exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, failed("find", err)
	}
	docs := res.Records()
	return map[string]any{"documents": docs, "count": len(docs)}, nil
}

func count(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	sql, args, err := buildCount(tbl, p.Map("query"))
	if err != nil {
		return nil, invalid(err)
	}
	var n int64
	if err := t.Exec.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return nil, failed("count", err)
	}
	return map[string]any{"count": n}, nil
}

func aggregate(ctx context.Context, t Target, p operation.Params) (any, error) {
	sql, err := p.RequireString("sql")
	if err != nil {
		return nil, err
	}
	res, err := t.Exec.Query(ctx, sql, p.Slice("params")...)
	if err != nil {
		return nil, failed("aggregate", err)
	}
	recs := res.Records()
	return map[string]any{"results": recs, "count": len(recs)}, nil
}

func listIndexes(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	res, err := t.Exec.Query(ctx, `
		SELECT indexname AS name, indexdef AS definition
		FROM pg_indexes WHERE schemaname = $1 AND tablename = $2
		ORDER BY indexname`, tbl.Schema, tbl.Name)
	if err != nil {
		return nil, failed("listIndexes", err)
	}
	return map[string]any{"indexes": res.Records()}, nil
}

func export(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	targets := p.Slice("exportTarget")
	if len(targets) == 0 {
		return nil, invalid(fmt.Errorf("missing required parameter \"exportTarget\""))
	}
	m, _ := targets[0].(map[string]any)
	target := operation.Params(m)

	var (
		sql  string
		args []any
	)
	switch target.String("name") {
	case "find":
		sql, args, err = SelectQuery{Table: tbl, Filter: target.Map("filter")}.Build()
	case "aggregate":
		sql, err = target.RequireString("sql")
	default:
		err = fmt.Errorf("unsupported export target %q", target.String("name"))
	}
	if err != nil {
		return nil, invalid(err)
	}
	res, err := t.Exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, failed("export", err)
	}
	recs := res.Records()
	return map[string]any{
		"exportedDocuments": recs,
		"count":             len(recs),
		"format":            p.StringOr("jsonExportFormat", "relaxed"),
	}, nil
}

func query(ctx context.Context, t Target, p operation.Params) (any, error) {
	sql, err := p.RequireString("sql")
	if err != nil {
		return nil, err
	}
	res, err := t.Exec.Query(ctx, sql, p.Slice("params")...)
	if err != nil {
		return nil, failed("query", err)
	}
	return map[string]any{"columns": res.Columns, "rows": res.JSONRows(), "count": len(res.Rows)}, nil
}

func insertMany(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	docs := p.Slice("documents")
	if len(docs) == 0 {
		return nil, invalid(fmt.Errorf("insertMany requires at least one document"))
	}
	stmts := make([]Statement, 0, len(docs))
	for i, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			return nil, invalid(fmt.Errorf("document %d is not an object", i))
		}
		sql, args := buildInsert(tbl, doc)
		stmts = append(stmts, Statement{SQL: sql, Args: args})
	}
	affected, err := t.Exec.Exec(ctx, stmts...)
	if err != nil {
		return nil, failed("insertMany", err)
	}
	var n int64
	for _, a := range affected {
		n += a
	}
	return map[string]any{"insertedCount": n, "acknowledged": true}, nil
}

func createIndex(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	sql, err := buildCreateIndex(tbl, p.String("name"), p.Map("keys"))
	if err != nil {
		return nil, invalid(err)
	}
	if _, err := t.Exec.Exec(ctx, Statement{SQL: sql}); err != nil {
		return nil, failed("createIndex", err)
	}
	name := p.String("name")
	if name == "" {
		name = indexName(tbl, p.Map("keys"))
	}
	return map[string]any{"indexName": name}, nil
}

func indexName(t Table, keys map[string]any) string {
	name := t.Name
	for _, col := range sortedKeys(keys) {
		name += "_" + col
	}
	return name + "_idx"
}

func createCollection(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	sql, err := buildCreateTable(tbl, p.Map("columns"))
	if err != nil {
		return nil, invalid(err)
	}
	if _, err := t.Exec.Exec(ctx, Statement{SQL: sql}); err != nil {
		return nil, failed("createCollection", err)
	}
	return map[string]any{"name": tbl.Name, "acknowledged": true}, nil
}

func updateMany(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	filter := p.Map("filter")
	set, err := setClause(p.Map("update"))
	if err != nil {
		return nil, invalid(err)
	}
	sql, args, err := buildUpdate(tbl, filter, set)
	if err != nil {
		return nil, invalid(err)
	}

	var matched, upserted int64
	err = t.Exec.InTx(ctx, func(tx pgx.Tx) error {
		n, err := t.Exec.execIn(ctx, tx, Statement{SQL: sql, Args: args})
		if err != nil {
			return err
		}
		matched = n
		if n > 0 || !p.Bool("upsert", false) {
			return nil
		}
		insSQL, insArgs := buildInsert(tbl, upsertDocument(filter, set))
		upserted, err = t.Exec.execIn(ctx, tx, Statement{SQL: insSQL, Args: insArgs})
		return err
	})
	if err != nil {
		return nil, failed("updateMany", err)
	}
	return map[string]any{
		"matchedCount":  matched,
		"modifiedCount": matched,
		"upsertedCount": upserted,
		"acknowledged":  true,
	}, nil
}

func renameCollection(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	newName, err := p.RequireString("newName")
	if err != nil {
		return nil, err
	}
	var stmts []Statement
	if p.Bool("dropTarget", false) {
		stmts = append(stmts, Statement{SQL: "DROP TABLE IF EXISTS " + Table{Schema: tbl.Schema, Name: newName}.Sanitize()})
	}
	stmts = append(stmts, Statement{SQL: fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tbl.Sanitize(), ident(newName))})
	if _, err := t.Exec.Exec(ctx, stmts...); err != nil {
		return nil, failed("renameCollection", err)
	}
	return map[string]any{"acknowledged": true}, nil
}

func execute(ctx context.Context, t Target, p operation.Params) (any, error) {
	sql, err := p.RequireString("sql")
	if err != nil {
		return nil, err
	}
	affected, err := t.Exec.Exec(ctx, Statement{SQL: sql, Args: p.Slice("params")})
	if err != nil {
		return nil, failed("execute", err)
	}
	return map[string]any{"rowsAffected": affected[0], "acknowledged": true}, nil
}

func deleteMany(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	sql, args, err := buildDelete(tbl, p.Map("filter"))
	if err != nil {
		return nil, invalid(err)
	}
	affected, err := t.Exec.Exec(ctx, Statement{SQL: sql, Args: args})
	if err != nil {
		return nil, failed("deleteMany", err)
	}
	return map[string]any{"deletedCount": affected[0], "acknowledged": true}, nil
}

func dropCollection(ctx context.Context, t Target, p operation.Params) (any, error) {
	tbl, err := table(p)
	if err != nil {
		return nil, err
	}
	if _, err := t.Exec.Exec(ctx, Statement{SQL: "DROP TABLE " + tbl.Sanitize()}); err != nil {
		return nil, failed("dropCollection", err)
	}
	return map[string]any{"acknowledged": true}, nil
}

func dropDatabase(ctx context.Context, t Target, p operation.Params) (any, error) {
	name := p.StringOr("database", t.Catalog)
	if _, err := t.Exec.Run(ctx, Statement{SQL: "DROP DATABASE " + ident(name)}); err != nil {
		return nil, failed("dropDatabase", err)
	}
	return map[string]any{"acknowledged": true}, nil
}
