package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetResourceFlags(t *testing.T) {
	t.Cleanup(func() {
		flagServer, flagServerArgs, flagProfile, flagProfiles = "", nil, "", ""
	})
}

func TestParseServerArgs(t *testing.T) {
	args, err := parseServerArgs([]string{"cluster=local", "port=27017", "tls=true", "uri=mongodb://h/db?x=1"})
	require.NoError(t, err)
	assert.Equal(t, "local", args["cluster"])
	assert.Equal(t, float64(27017), args["port"])
	assert.Equal(t, true, args["tls"])
	assert.Equal(t, "mongodb://h/db?x=1", args["uri"])

	_, err = parseServerArgs([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseServerArgs([]string{"=x"})
	assert.Error(t, err)
}

func TestResolveResourceRequiresServer(t *testing.T) {
	resetResourceFlags(t)
	_, err := resolveResource()
	assert.Error(t, err)
}

func TestResolveResourceFromProfile(t *testing.T) {
	resetResourceFlags(t)
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`profiles:
  local-mongo:
    server: mongodb
    args:
      cluster: local
      readOnly: true
`), 0o600))

	flagProfiles = path
	flagProfile = "local-mongo"
	flagServerArgs = []string{"cluster=staging"}

	res, err := resolveResource()
	require.NoError(t, err)
	assert.Equal(t, "mongodb", res.Name)
	assert.Equal(t, "staging", res.Args["cluster"])
	assert.Equal(t, true, res.Args["readOnly"])

	flagServer = "postgresql"
	res, err = resolveResource()
	require.NoError(t, err)
	assert.Equal(t, "postgresql", res.Name)
}

func TestResolveResourceUnknownProfile(t *testing.T) {
	resetResourceFlags(t)
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: {}\n"), 0o600))
	flagProfiles = path
	flagProfile = "missing"

	_, err := resolveResource()
	assert.Error(t, err)
}

func TestDecodeInstructions(t *testing.T) {
	one, err := decodeInstructions([]byte(`{"type":"mongodb","operation":"find","connectionString":"mongodb://h/db"}`))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "find", one[0].Operation)
	assert.Equal(t, "mongodb://h/db", one[0].ConnectionIdentity)

	many, err := decodeInstructions([]byte(` [{"type":"browser","operation":"navigate"},{"type":"http","operation":"request"}]`))
	require.NoError(t, err)
	assert.Len(t, many, 2)

	_, err = decodeInstructions([]byte("  "))
	assert.Error(t, err)
	_, err = decodeInstructions([]byte("{"))
	assert.Error(t, err)
}

func TestParseToolArgs(t *testing.T) {
	m, err := parseToolArgs("")
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = parseToolArgs(`{"limit":5}`)
	require.NoError(t, err)
	assert.Equal(t, float64(5), m["limit"])

	m, err = parseToolArgs("null")
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = parseToolArgs("[1]")
	assert.Error(t, err)
}

func TestMaskKeyAndFirstLine(t *testing.T) {
	assert.Equal(t, "********", maskKey("short"))
	assert.Equal(t, "sk-l********", maskKey("sk-live-0123456789"))
	assert.Equal(t, "Find documents", firstLine("  Find documents\nin a collection"))
}
