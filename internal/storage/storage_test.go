package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "preferences.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = s.Get(ctx, "theme-preset")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "theme-preset", "dubai-gold"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(ctx, "theme-preset")
	require.NoError(t, err)
	assert.Equal(t, "dubai-gold", v)
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "v"))
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	var p Preferences = NewMemory()

	_, err := p.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.Set(ctx, "theme-preset", "desert-rose"))
	v, err := p.Get(ctx, "theme-preset")
	require.NoError(t, err)
	assert.Equal(t, "desert-rose", v)
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "http://not-redis")
	assert.Error(t, err)
}
