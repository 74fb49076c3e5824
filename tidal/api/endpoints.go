package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/xeptore/tidalapi/tidal"
)

const (
	mixPagePath       = "pages/mix"
	mixDeviceType     = "BROWSER"
	mixPageLocale     = "en_US"
	cacheKeySeparator = "|"
)

func (c *Client) GetTrack(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "tracks/"+url.PathEscape(id), nil)
}

func (c *Client) GetTrackLyrics(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "tracks/"+url.PathEscape(id)+"/lyrics", nil)
}

func (c *Client) GetAlbum(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "albums/"+url.PathEscape(id), nil)
}

func (c *Client) GetAlbumTracks(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "albums/"+url.PathEscape(id)+"/tracks", nil)
}

func (c *Client) GetArtist(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "artists/"+url.PathEscape(id), nil)
}

func (c *Client) GetArtistAlbums(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "artists/"+url.PathEscape(id)+"/albums", nil)
}

func (c *Client) GetPlaylist(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "playlists/"+url.PathEscape(id), nil)
}

func (c *Client) GetPlaylistTracks(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "playlists/"+url.PathEscape(id)+"/tracks", nil)
}

func (c *Client) GetVideo(ctx context.Context, id string) (Object, error) {
	return c.lookup(ctx, "videos/"+url.PathEscape(id), nil)
}

// GetMix returns the mix page exactly as the service sends it.
func (c *Client) GetMix(ctx context.Context, id string) (Object, error) {
	query := make(url.Values, 3)
	query.Set("mixId", id)
	query.Set("deviceType", mixDeviceType)
	query.Set("locale", mixPageLocale)
	return c.lookup(ctx, mixPagePath, query)
}

// GetSessionInfo calls the bootstrap endpoint with the active credentials.
// It is never cached.
func (c *Client) GetSessionInfo(ctx context.Context) (Object, error) {
	return c.Call(ctx, SessionsPath)
}

// Lookup dispatches a parsed link to the matching entity lookup.
func (c *Client) Lookup(ctx context.Context, link tidal.Link) (Object, error) {
	switch link.Kind {
	case tidal.LinkKindTrack:
		return c.GetTrack(ctx, link.ID)
	case tidal.LinkKindAlbum:
		return c.GetAlbum(ctx, link.ID)
	case tidal.LinkKindArtist:
		return c.GetArtist(ctx, link.ID)
	case tidal.LinkKindPlaylist:
		return c.GetPlaylist(ctx, link.ID)
	case tidal.LinkKindVideo:
		return c.GetVideo(ctx, link.ID)
	case tidal.LinkKindMix:
		return c.GetMix(ctx, link.ID)
	default:
		return nil, fmt.Errorf("unsupported link kind %q", link.Kind)
	}
}

// lookup serves entity reads from the response cache when one is
// configured. Entries are keyed per country since availability differs.
func (c *Client) lookup(ctx context.Context, path string, query url.Values) (Object, error) {
	call := func(ctx context.Context) (Object, error) {
		return c.Call(ctx, path, WithQuery(query))
	}
	if nil == c.cache {
		return call(ctx)
	}

	// Resolve session info first so the key carries the country the request
	// is actually sent with.
	user, err := c.AwaitStableSession(ctx)
	if nil != err {
		return nil, err
	}
	var countryCode string
	if nil != user {
		countryCode = user.CountryCode
	}
	key := path + "?" + query.Encode() + cacheKeySeparator + countryCode
	return c.cache.Fetch(ctx, key, c.cacheTTL, call)
}

// CompleteTitleFromPage composes the display title of a track or video
// object from its title and version fields.
func CompleteTitleFromPage(obj Object) string {
	title, _ := obj["title"].(string)
	version, ok := obj["version"].(string)
	if !ok {
		return tidal.CompleteTitle(title, nil)
	}
	return tidal.CompleteTitle(title, &version)
}
