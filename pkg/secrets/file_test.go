package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store := NewFileStore(path)

	require.NoError(t, store.Set(context.Background(), "clickup-token", "pk_123"))

	value, err := store.Get(context.Background(), "clickup-token")
	require.NoError(t, err)
	assert.Equal(t, "pk_123", value)
}

func TestFileStore_MissingSecret(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestFileStore_RestrictivePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store := NewFileStore(path)
	require.NoError(t, store.Set(context.Background(), "k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_Overwrite(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))

	require.NoError(t, store.Set(context.Background(), "k", "old"))
	require.NoError(t, store.Set(context.Background(), "k", "new"))

	value, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}
