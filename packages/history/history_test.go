package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecord_FillsDefaults(t *testing.T) {
	store := openStore(t)

	e, err := store.Record(context.Background(), Entry{Method: "GET", URL: "http://localhost:3000/", Status: 200, Bytes: 9})
	require.NoError(t, err)

	_, err = uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestList_NewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, path := range []string{"/a", "/b", "/c"} {
		_, err := store.Record(ctx, Entry{
			Method:    "GET",
			URL:       "http://localhost" + path,
			Status:    200,
			Duration:  time.Duration(i+1) * time.Millisecond,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "http://localhost/c", entries[0].URL)
	assert.Equal(t, 3*time.Millisecond, entries[0].Duration)
	assert.Equal(t, "http://localhost/a", entries[2].URL)

	entries, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecord_Failure(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Record(ctx, Entry{Method: "GET", URL: "ws://x", Error: "unsupported protocol: ws:"})
	require.NoError(t, err)

	entries, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].Status)
	assert.Equal(t, "unsupported protocol: ws:", entries[0].Error)
}

func TestOpen_Prefixes(t *testing.T) {
	for _, prefix := range []string{"sqlite://", "sqlite:", ""} {
		store, err := Open(prefix + filepath.Join(t.TempDir(), "h.db"))
		require.NoError(t, err, prefix)
		require.NoError(t, store.Close())
	}

	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Record(ctx, Entry{Method: "POST", URL: "http://localhost/body", Status: 200})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Record(ctx, Entry{Method: "GET", URL: "http://localhost/", Status: 200})
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx))

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
