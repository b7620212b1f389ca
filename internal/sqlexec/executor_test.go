// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/operation"
)

func TestResultMarshalJSON(t *testing.T) {
	id := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	res := Result{
		Columns: []string{"id", "blob", "name", "missing"},
		Rows:    [][]any{{id, []byte{0xde, 0xad}, "ada", nil}},
	}

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["id","blob","name","missing"],"rows":[["123e4567-e89b-12d3-a456-426614174000","\\xdead","ada",null]]}`, string(raw))
}

func TestResultRecords(t *testing.T) {
	res := Result{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "ada"}, {int64(2), "grace"}},
	}

	recs := res.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, map[string]any{"id": int64(2), "name": "grace"}, recs[1])
}

func TestExtractEnumValues(t *testing.T) {
	tests := []struct {
		clause string
		want   []string
	}{
		{"status IN ('queued','running','done','failed')", []string{"queued", "running", "done", "failed"}},
		{"((status = ANY (ARRAY['draft'::text, 'published'::text])))", []string{"draft", "published"}},
		{"(price > (0)::numeric)", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractEnumValues(tt.clause), tt.clause)
	}
}

func TestOperationTable(t *testing.T) {
	for _, op := range []string{
		"connect", "listDatabases", "listCollections", "collectionSchema", "collectionStorageSize",
		"dbStats", "explain", "logs", "find", "count", "aggregate", "listIndexes", "export",
		"insertMany", "createIndex", "createCollection", "updateMany", "renameCollection",
		"deleteMany", "dropCollection", "dropDatabase", "query", "execute",
	} {
		assert.Contains(t, Operations, op)
	}
	assert.Len(t, Operations, 23)
}

func TestExecuteUnknownOperation(t *testing.T) {
	_, err := Execute(context.Background(), nil, nil, "", "app", "vacuum", operation.Params{})

	require.Error(t, err)
	assert.Equal(t, errors.UnsupportedOperation, errors.KindOf(err))
	assert.Contains(t, err.Error(), "Unsupported PostgreSQL operation: vacuum")
}

func TestExplainTarget(t *testing.T) {
	sql, args, err := explainTarget(operation.Params{"sql": "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
	assert.Empty(t, args)

	sql, args, err = explainTarget(operation.Params{
		"collection": "orders",
		"method":     []any{map[string]any{"name": "count", "query": map[string]any{"status": "open"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) FROM "public"."orders" WHERE "status" = $1`, sql)
	assert.Equal(t, []any{"open"}, args)

	_, _, err = explainTarget(operation.Params{
		"collection": "orders",
		"method":     []any{map[string]any{"name": "distinct"}},
	})
	assert.Error(t, err)
}

func TestLogsIsAlwaysEmpty(t *testing.T) {
	out, err := logs(context.Background(), Target{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, out.(map[string]any)["logs"])
}
