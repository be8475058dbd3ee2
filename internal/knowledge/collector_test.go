package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"items":[{"id":"PL1","snippet":{"title":"Covers","description":"cover songs","channelTitle":"Setsuna Ch."},"contentDetails":{"itemCount":3}}]}`))
	})
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			w.Write([]byte(`{"items":[
				{"snippet":{"resourceId":{"videoId":"v1"}}},
				{"snippet":{"resourceId":{"videoId":"v2"}}}
			],"nextPageToken":"page2"}`))
			return
		}
		w.Write([]byte(`{"items":[{"snippet":{"resourceId":{"videoId":"v3"}}}]}`))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"v1","snippet":{"title":"Song 1","channelId":"UC1","channelTitle":"Setsuna Ch.","publishedAt":"2024-05-01T12:00:00Z"},"contentDetails":{"duration":"PT4M13S"}},
			{"id":"v2","snippet":{"title":"Song 2","channelId":"UC1","channelTitle":"Setsuna Ch.","publishedAt":"2024-06-01T12:00:00Z"},"contentDetails":{"duration":"PT3M2S"}},
			{"id":"v3","snippet":{"title":"Song 3","channelId":"UC1","channelTitle":"Setsuna Ch.","publishedAt":"2024-07-01T12:00:00Z"},"contentDetails":{"duration":"PT5M40S"}}
		]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testCollector(t *testing.T) (*Collector, *Store) {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "knowledge.json"))
	require.NoError(t, err)

	c, err := NewCollector("test-key", store)
	require.NoError(t, err)
	c.base = testAPI(t).URL
	return c, store
}

func TestNewCollector_NoKey(t *testing.T) {
	_, err := NewCollector("", nil)
	assert.Error(t, err)
}

func TestCollector_CollectPlaylist(t *testing.T) {
	c, store := testCollector(t)

	pl, err := c.CollectPlaylist(context.Background(), "PL1")
	require.NoError(t, err)

	assert.Equal(t, "Covers", pl.Title)
	// ids gathered across both pages
	assert.Equal(t, []string{"v1", "v2", "v3"}, pl.VideoIDs)

	videos, playlists := store.Counts()
	assert.Equal(t, 3, videos)
	assert.Equal(t, 1, playlists)

	v, err := store.Video("v2")
	require.NoError(t, err)
	assert.Equal(t, "Song 2", v.Title)
	assert.Equal(t, "PT3M2S", v.Duration)
	assert.False(t, v.CollectedAt.IsZero())
}

func TestCollector_CollectVideo(t *testing.T) {
	c, store := testCollector(t)

	v, err := c.CollectVideo(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "Song 1", v.Title)

	got, err := store.Video("v1")
	require.NoError(t, err)
	assert.Equal(t, v.Title, got.Title)
}

func TestCollector_APIError(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "knowledge.json"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"quota exceeded"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewCollector("test-key", store)
	require.NoError(t, err)
	c.base = srv.URL

	_, err = c.CollectPlaylist(context.Background(), "PL1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
