// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec runs PostgreSQL vendor operations over a pgx connection pool.
// The document-style operations (find, insertMany, updateMany, ...) are
// mapped onto parameterized SQL with quoted identifiers; raw statements are
// available through query (read) and execute (write, in a transaction).
//
// Key features include:
//   - Transaction management for write operations
//   - JSON result formatting with proper type handling
//   - Support for PostgreSQL-specific data types (UUIDs, byte arrays, etc.)
package sqlexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DB is the subset of *pgxpool.Pool the executor needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Result represents a normalized SQL result for JSON marshaling.
type Result struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for Result to handle pgx types properly.
func (r Result) MarshalJSON() ([]byte, error) {
	type Alias Result
	a := Alias(r)
	a.Rows = r.JSONRows()
	return json.Marshal(a)
}

// JSONRows returns the rows with pgx values converted for JSON.
func (r Result) JSONRows() [][]any {
	out := make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = make([]any, len(row))
		for j, val := range row {
			out[i][j] = jsonValue(val)
		}
	}
	return out
}

// Records returns the rows as column-keyed objects.
func (r Result) Records() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				rec[col] = jsonValue(row[i])
			}
		}
		out = append(out, rec)
	}
	return out
}

// jsonValue converts pgx values that encoding/json renders poorly.
func jsonValue(val any) any {
	switch v := val.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	case []byte:
		if len(v) == 16 {
			if id, err := uuid.FromBytes(v); err == nil {
				return id.String()
			}
		}
		return fmt.Sprintf("\\x%x", v)
	}
	return val
}

// Executor executes SQL statements against one database.
type Executor struct {
	db  DB
	log *zap.Logger
}

// New creates an Executor from an existing pgx pool.
func New(db DB, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{db: db, log: log}
}

// Query runs a read statement and collects every row.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (Result, error) {
	e.log.Debug("query", zap.String("sql", truncate(sql)))
	res := Result{Columns: []string{}, Rows: [][]any{}}

	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	res.Columns = make([]string, len(fds))
	for i, fd := range fds {
		res.Columns[i] = fd.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return res, err
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

// Exec runs write statements in one transaction and returns the rows
// affected by each. Nothing is committed unless every statement succeeds.
func (e *Executor) Exec(ctx context.Context, stmts ...Statement) ([]int64, error) {
	affected := make([]int64, 0, len(stmts))
	err := e.InTx(ctx, func(tx pgx.Tx) error {
		for _, st := range stmts {
			n, err := e.execIn(ctx, tx, st)
			if err != nil {
				return err
			}
			affected = append(affected, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

// InTx runs fn in a transaction, committing when fn returns nil.
func (e *Executor) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (e *Executor) execIn(ctx context.Context, tx pgx.Tx, st Statement) (int64, error) {
	e.log.Debug("exec", zap.String("sql", truncate(st.SQL)))
	ct, err := tx.Exec(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// Run executes a single statement outside any transaction. Statements
// such as DROP DATABASE refuse to run inside one.
func (e *Executor) Run(ctx context.Context, st Statement) (int64, error) {
	e.log.Debug("run", zap.String("sql", truncate(st.SQL)))
	ct, err := e.db.Exec(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// Statement is one SQL statement with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

func truncate(sql string) string {
	if len(sql) <= 200 {
		return sql
	}
	return sql[:200] + "..."
}
