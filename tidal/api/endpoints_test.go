package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tidalapi/cache"
	"github.com/xeptore/tidalapi/tidal"
	"github.com/xeptore/tidalapi/tidal/api"
)

func TestEndpointPaths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(srv.Close)
	c := newClient(t, srv, nil)

	tests := map[string]func(context.Context, string) (api.Object, error){
		"/v1/tracks/1":           c.GetTrack,
		"/v1/tracks/1/lyrics":    c.GetTrackLyrics,
		"/v1/albums/1":           c.GetAlbum,
		"/v1/albums/1/tracks":    c.GetAlbumTracks,
		"/v1/artists/1":          c.GetArtist,
		"/v1/artists/1/albums":   c.GetArtistAlbums,
		"/v1/playlists/1":        c.GetPlaylist,
		"/v1/playlists/1/tracks": c.GetPlaylistTracks,
		"/v1/videos/1":           c.GetVideo,
	}
	for expected, get := range tests {
		obj, err := get(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, expected, obj["path"])
	}
}

func TestGetMix(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pages/mix", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "abc", q.Get("mixId"))
		assert.Equal(t, "BROWSER", q.Get("deviceType"))
		assert.Equal(t, "en_US", q.Get("locale"))
		assert.Equal(t, "US", q.Get("countryCode"))
		writeJSON(w, http.StatusOK, `{"title":"My Mix","rows":[{"modules":[]}]}`)
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, srv, nil, api.WithUser(newUser("token")))
	obj, err := c.GetMix(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "My Mix", obj["title"])
	assert.Len(t, obj["rows"], 1)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"path":"`+r.URL.Path+`"}`)
	}))
	t.Cleanup(srv.Close)
	c := newClient(t, srv, nil)

	link, err := tidal.ParseLink("https://tidal.com/browse/album/99")
	require.NoError(t, err)
	obj, err := c.Lookup(context.Background(), *link)
	require.NoError(t, err)
	assert.Equal(t, "/v1/albums/99", obj["path"])

	_, err = c.Lookup(context.Background(), tidal.Link{Kind: "podcast", ID: "1"})
	require.Error(t, err)
}

func TestLookupCache(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		writeJSON(w, http.StatusOK, `{"id":1}`)
	}))
	t.Cleanup(srv.Close)

	objects := cache.New[api.Object](10)
	t.Cleanup(objects.Stop)
	c := newClient(t, srv, nil, api.WithCache(objects, time.Minute))

	for range 3 {
		_, err := c.GetTrack(context.Background(), "1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), requests.Load())

	_, err := c.GetTrack(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
}

func TestLookupCacheSkipsErrors(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		writeJSON(w, http.StatusNotFound, `{"userMessage":"gone"}`)
	}))
	t.Cleanup(srv.Close)

	objects := cache.New[api.Object](10)
	t.Cleanup(objects.Stop)
	c := newClient(t, srv, nil, api.WithCache(objects, time.Minute))

	for range 2 {
		_, err := c.GetTrack(context.Background(), "1")
		require.ErrorIs(t, err, api.ErrNotFound)
	}
	assert.Equal(t, int32(2), requests.Load())
}

func TestCompleteTitleFromPage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Foo", api.CompleteTitleFromPage(api.Object{"title": "Foo", "version": nil}))
	assert.Equal(t, "Foo", api.CompleteTitleFromPage(api.Object{"title": "Foo"}))
	assert.Equal(t, "Foo (Bar)", api.CompleteTitleFromPage(api.Object{"title": "Foo", "version": "Bar"}))
	assert.Equal(t, "Foo (Bar)", api.CompleteTitleFromPage(api.Object{"title": "Foo (Bar)", "version": "Bar"}))
}

func TestLookupCacheKeysOnResolvedCountry(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeJSON(w, http.StatusOK, `{"country":"`+r.URL.Query().Get("countryCode")+`"}`)
	}))
	t.Cleanup(srv.Close)

	session := &fakeSession{ //nolint:exhaustruct
		session: func(user tidal.User) (*tidal.User, error) {
			user.SessionID, user.CountryCode = "s", "DE"
			return &user, nil
		},
	}
	user := newUser("token")
	user.SessionID, user.CountryCode = "", ""

	objects := cache.New[api.Object](10)
	t.Cleanup(objects.Stop)
	c := newClient(t, srv, session, api.WithUser(user), api.WithCache(objects, time.Minute))

	obj, err := c.GetTrack(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "DE", obj["country"])

	c.ClearUser()
	obj, err = c.GetTrack(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "", obj["country"])
	assert.Equal(t, int32(2), requests.Load())

	c.SetUser(*newUser("token"))
	obj, err = c.GetTrack(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "US", obj["country"])
	assert.Equal(t, int32(3), requests.Load())
}
