// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var users = Table{Schema: "public", Name: "users"}

func TestParseTable(t *testing.T) {
	assert.Equal(t, Table{Schema: "app", Name: "orders"}, ParseTable("app.orders", "public"))
	assert.Equal(t, Table{Schema: "public", Name: "orders"}, ParseTable("orders", ""))
	assert.Equal(t, Table{Schema: "sales", Name: "orders"}, ParseTable("orders", "sales"))
	assert.Equal(t, `"public"."users"`, users.Sanitize())
}

func TestSelectQueryBuild(t *testing.T) {
	tests := []struct {
		name     string
		query    SelectQuery
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "bare",
			query:   SelectQuery{Table: users},
			wantSQL: `SELECT * FROM "public"."users"`,
		},
		{
			name: "filter projection sort limit",
			query: SelectQuery{
				Table:      users,
				Filter:     map[string]any{"status": "active", "deleted_at": nil},
				Projection: map[string]any{"email": float64(1), "id": true, "password": float64(0)},
				Sort:       map[string]any{"created_at": float64(-1)},
				Limit:      10,
			},
			wantSQL:  `SELECT "email", "id" FROM "public"."users" WHERE "deleted_at" IS NULL AND "status" = $1 ORDER BY "created_at" DESC LIMIT 10`,
			wantArgs: []any{"active"},
		},
		{
			name: "operators",
			query: SelectQuery{
				Table:  users,
				Filter: map[string]any{"age": map[string]any{"$gte": float64(18), "$lt": float64(65)}, "role": map[string]any{"$in": []any{"admin", "ops"}}},
			},
			wantSQL:  `SELECT * FROM "public"."users" WHERE "age" >= $1 AND "age" < $2 AND "role" = ANY($3)`,
			wantArgs: []any{float64(18), float64(65), []any{"admin", "ops"}},
		},
		{
			name:    "quotes hostile identifiers",
			query:   SelectQuery{Table: Table{Schema: "public", Name: `x"; DROP TABLE y; --`}},
			wantSQL: `SELECT * FROM "public"."x""; DROP TABLE y; --"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.query.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestWhereRejectsUnknownOperator(t *testing.T) {
	_, _, err := SelectQuery{Table: users, Filter: map[string]any{"name": map[string]any{"$regex": "^a"}}}.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$regex")

	_, _, err = SelectQuery{Table: users, Filter: map[string]any{"id": map[string]any{"$in": "1"}}}.Build()
	assert.Error(t, err)
}

func TestBuildInsert(t *testing.T) {
	sql, args := buildInsert(users, map[string]any{"name": "ada", "age": float64(36)})
	assert.Equal(t, `INSERT INTO "public"."users" ("age", "name") VALUES ($1, $2)`, sql)
	assert.Equal(t, []any{float64(36), "ada"}, args)

	sql, args = buildInsert(users, map[string]any{})
	assert.Equal(t, `INSERT INTO "public"."users" DEFAULT VALUES`, sql)
	assert.Empty(t, args)
}

func TestBuildUpdate(t *testing.T) {
	set, err := setClause(map[string]any{"$set": map[string]any{"status": "done"}})
	require.NoError(t, err)

	sql, args, err := buildUpdate(users, map[string]any{"id": float64(7)}, set)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "public"."users" SET "status" = $1 WHERE "id" = $2`, sql)
	assert.Equal(t, []any{"done", float64(7)}, args)

	_, err = setClause(map[string]any{"$inc": map[string]any{"n": 1}})
	assert.Error(t, err)

	_, _, err = buildUpdate(users, nil, map[string]any{})
	assert.Error(t, err)
}

func TestUpsertDocument(t *testing.T) {
	doc := upsertDocument(
		map[string]any{"email": "a@b.c", "age": map[string]any{"$gt": float64(1)}},
		map[string]any{"status": "new"},
	)
	assert.Equal(t, map[string]any{"email": "a@b.c", "status": "new"}, doc)
}

func TestBuildDeleteAndCount(t *testing.T) {
	sql, args, err := buildDelete(users, map[string]any{"status": "gone"})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "public"."users" WHERE "status" = $1`, sql)
	assert.Equal(t, []any{"gone"}, args)

	sql, _, err = buildCount(users, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) FROM "public"."users"`, sql)
}

func TestBuildCreateIndex(t *testing.T) {
	sql, err := buildCreateIndex(users, "", map[string]any{"email": float64(1), "created_at": float64(-1)})
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX "users_created_at_email_idx" ON "public"."users" ("created_at" DESC, "email" ASC)`, sql)

	_, err = buildCreateIndex(users, "x", nil)
	assert.Error(t, err)
}

func TestBuildCreateTable(t *testing.T) {
	sql, err := buildCreateTable(users, nil)
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "public"."users" (id bigserial PRIMARY KEY)`, sql)

	sql, err = buildCreateTable(users, map[string]any{"id": "bigint primary key", "name": "varchar(64)", "tags": "text[]"})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "public"."users" ("id" bigint primary key, "name" varchar(64), "tags" text[])`, sql)

	_, err = buildCreateTable(users, map[string]any{"name": "text); DROP TABLE users; --"})
	assert.Error(t, err)
}
