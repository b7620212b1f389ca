package operation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorbridge/cli/internal/errors"
)

func TestParamsAccessors(t *testing.T) {
	p := Params{
		"collection": "users",
		"limit":      float64(25),
		"upsert":     true,
		"filter":     map[string]any{"age": float64(3)},
		"files":      []any{"a.txt", 4, "b.txt"},
		"empty":      "",
		"nothing":    nil,
	}

	assert.Equal(t, "users", p.String("collection"))
	assert.Equal(t, "fallback", p.StringOr("empty", "fallback"))
	assert.Equal(t, 25, p.Int("limit", 10))
	assert.Equal(t, 10, p.Int("missing", 10))
	assert.True(t, p.Bool("upsert", false))
	assert.True(t, p.Bool("missing", true))
	assert.Equal(t, float64(3), p.Map("filter")["age"])
	assert.Equal(t, []string{"a.txt", "b.txt"}, p.Strings("files"))
	assert.Equal(t, []string{"users"}, p.Strings("collection"))
	assert.True(t, p.Has("filter"))
	assert.False(t, p.Has("nothing"))

	_, err := p.RequireString("empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"empty"`)
}

func TestParamsClone(t *testing.T) {
	p := Params{"a": "1"}
	c := p.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", p["a"])
}

func TestTableLookup(t *testing.T) {
	table := Table[string]{
		"find":  func(context.Context, string, Params) (any, error) { return "found", nil },
		"count": func(context.Context, string, Params) (any, error) { return 1, nil },
	}

	assert.Equal(t, []string{"count", "find"}, table.Names())

	h, err := table.Lookup("MongoDB", "find")
	require.NoError(t, err)
	out, err := h(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "found", out)

	_, err = table.Lookup("MongoDB", "frobnicate")
	require.Error(t, err)
	assert.Equal(t, errors.UnsupportedOperation, errors.KindOf(err))
	assert.Contains(t, err.Error(), "Unsupported MongoDB operation: frobnicate")
}

func TestInferSchema(t *testing.T) {
	records := []map[string]any{
		{"name": "ada", "age": float64(36), "_id": map[string]any{"$oid": "1"}},
		{"name": "grace", "age": "unknown"},
		{"name": "ada"},
		{"name": "linus", "tags": []any{"x"}},
		{"name": "ken"},
	}

	schema := InferSchema(records)

	require.Contains(t, schema, "name")
	assert.Equal(t, "string", schema["name"].Type)
	assert.Equal(t, []any{"ada", "grace", "linus"}, schema["name"].Examples)

	assert.Equal(t, "number", schema["age"].Type)
	assert.Equal(t, []string{"number", "string"}, schema["age"].Types)

	assert.Equal(t, "object", schema["_id"].Type)
	assert.Equal(t, "array", schema["tags"].Type)
}

func TestInferSchemaEmpty(t *testing.T) {
	assert.Empty(t, InferSchema(nil))
}
