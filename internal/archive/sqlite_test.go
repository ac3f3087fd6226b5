package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/framecast-server/internal/chat"
)

func newTestArchiver(t *testing.T) *SQLiteArchiver {
	t.Helper()
	a, err := NewSQLite(":memory:", "/archive/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLiteArchiveAndGet(t *testing.T) {
	a := newTestArchiver(t)
	ctx := context.Background()

	media := chat.Media{chat.EncodingJPG: []byte("strip"), chat.EncodingMP4: []byte("video")}
	require.NoError(t, a.Archive(ctx, Metadata{Name: "01ABC"}, media))

	body, err := a.Get(ctx, "01ABC.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("strip"), body)

	_, err = a.Get(ctx, "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteArchiveRequiresJPG(t *testing.T) {
	a := newTestArchiver(t)
	err := a.Archive(context.Background(), Metadata{Name: "x"}, chat.Media{chat.EncodingMP4: []byte("v")})
	assert.Error(t, err)
}

func TestSQLiteArchiveDuplicateName(t *testing.T) {
	a := newTestArchiver(t)
	ctx := context.Background()
	media := chat.Media{chat.EncodingJPG: []byte("strip")}

	require.NoError(t, a.Archive(ctx, Metadata{Name: "dup"}, media))
	assert.Error(t, a.Archive(ctx, Metadata{Name: "dup"}, media))
}

func TestSQLiteList(t *testing.T) {
	a := newTestArchiver(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		require.NoError(t, a.Archive(ctx, Metadata{Name: name}, chat.Media{chat.EncodingJPG: []byte(name + name)}))
	}

	items, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byName := map[string]Archived{}
	for _, item := range items {
		byName[item.Name] = item
	}
	require.Contains(t, byName, "a.jpg")
	assert.Equal(t, "/archive/a.jpg", byName["a.jpg"].URL)
	assert.Equal(t, 2, byName["a.jpg"].Size)
}
