package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 2, s.Writes())
}

func TestMemoryStore_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.Set(ctx, "k", "v"), context.Canceled)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetMany(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, SetMany(ctx, s, map[string]string{"a": "1", "b": "2"}))
	a, _ := s.Get(ctx, "a")
	b, _ := s.Get(ctx, "b")
	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	_, err = s.Get(ctx, "geocache.forward")
	assert.ErrorIs(t, err, ErrNotFound)

	blob := `[{"key":"boden","lat":65.8,"lon":21.7,"name":"Boden, SE","ts":1}]`
	require.NoError(t, s.Set(ctx, "geocache.forward", blob))
	require.NoError(t, s.Set(ctx, "weather.location", "Boden, SE"))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "geocache.forward")
	require.NoError(t, err)
	assert.Equal(t, blob, got)
	got, err = reopened.Get(ctx, "weather.location")
	require.NoError(t, err)
	assert.Equal(t, "Boden, SE", got)
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: [unterminated"), 0o644))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_FailedWriteKeepsPreviousValue(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "old"))

	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	assert.Error(t, s.Set(ctx, "k", "new"))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "old", v)
}

func TestFileStore_SetManyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, SetMany(ctx, s, map[string]string{"a": "1", "b": "2"}))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	assert.Error(t, SetMany(ctx, s, map[string]string{"a": "x", "c": "3"}))
	v, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	_, err = s.Get(ctx, "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := OpenPostgresStore(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	key := "test." + t.Name()
	require.NoError(t, s.Set(ctx, key, "one"))
	require.NoError(t, s.Set(ctx, key, "two"))
	v, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	_, err = s.Get(ctx, key+".missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetMany(ctx, s, map[string]string{key: "three", key + ".other": "four"}))
	v, err = s.Get(ctx, key+".other")
	require.NoError(t, err)
	assert.Equal(t, "four", v)
}
