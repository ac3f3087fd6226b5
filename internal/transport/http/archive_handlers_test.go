package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/framecast-server/internal/archive"
	"github.com/vovakirdan/framecast-server/internal/chat"
)

func TestArchiveRoutes(t *testing.T) {
	store, err := archive.NewSQLite(":memory:", ArchivePrefix)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Archive(context.Background(), archive.Metadata{Name: "01KEY"},
		chat.Media{chat.EncodingJPG: []byte("filmstrip")}))

	logger := zerolog.Nop()
	ts := httptest.NewServer(NewRouter(store, &logger))
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Get(ts.URL + "/archive")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var items []ArchivedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "01KEY.jpg", items[0].Name)
	assert.Equal(t, "/archive/01KEY.jpg", items[0].URL)
	assert.Equal(t, len("filmstrip"), items[0].Size)

	item, err := ts.Client().Get(ts.URL + items[0].URL)
	require.NoError(t, err)
	defer item.Body.Close()
	body, err := io.ReadAll(item.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, item.StatusCode)
	assert.Equal(t, "image/jpeg", item.Header.Get("Content-Type"))
	assert.Equal(t, "filmstrip", string(body))

	for _, path := range []string{"/archive/missing.jpg", "/archive/01KEY.exe"} {
		r, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, 404, r.StatusCode, path)
	}
}

func TestArchiveRoutesWithoutArchiver(t *testing.T) {
	logger := zerolog.Nop()
	ts := httptest.NewServer(NewRouter(nil, &logger))
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Get(ts.URL + "/archive")
	require.NoError(t, err)
	defer resp.Body.Close()

	var items []ArchivedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	assert.Empty(t, items)
}
