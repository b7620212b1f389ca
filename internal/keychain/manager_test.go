package keychain

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyLifecycle(t *testing.T) {
	m := NewWithRing(keyring.NewArrayKeyring(nil))

	_, err := m.LoadAPIKey()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.SaveAPIKey("vb_live_123"))
	key, err := m.LoadAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "vb_live_123", key)

	require.NoError(t, m.SaveAPIKey("vb_live_456"))
	key, err = m.LoadAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "vb_live_456", key)

	require.NoError(t, m.ClearAPIKey())
	_, err = m.LoadAPIKey()
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, m.ClearAPIKey(), "clearing twice")
}

func TestSaveRejectsEmptyKey(t *testing.T) {
	m := NewWithRing(keyring.NewArrayKeyring(nil))
	assert.Error(t, m.SaveAPIKey(""))
}
