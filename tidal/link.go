package tidal

import (
	"errors"
	"net/url"
	"strings"
)

type LinkKind string

const (
	LinkKindTrack    LinkKind = "track"
	LinkKindAlbum    LinkKind = "album"
	LinkKindArtist   LinkKind = "artist"
	LinkKindPlaylist LinkKind = "playlist"
	LinkKindVideo    LinkKind = "video"
	LinkKindMix      LinkKind = "mix"
)

var ErrInvalidLink = errors.New("not a TIDAL entity link")

type Link struct {
	Kind LinkKind
	ID   string
}

func parseKind(s string) (LinkKind, bool) {
	switch k := LinkKind(s); k {
	case LinkKindTrack, LinkKindAlbum, LinkKindArtist, LinkKindPlaylist, LinkKindVideo, LinkKindMix:
		return k, true
	default:
		return "", false
	}
}

// ParseLink accepts links such as https://tidal.com/browse/album/123 and
// https://listen.tidal.com/track/456.
func ParseLink(text string) (*Link, error) {
	u, err := url.Parse(strings.TrimSpace(text))
	if nil != err {
		return nil, ErrInvalidLink
	}

	if u.Scheme != "https" {
		return nil, ErrInvalidLink
	}

	switch u.Host {
	case "tidal.com", "www.tidal.com", "listen.tidal.com":
	default:
		return nil, ErrInvalidLink
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 3 && parts[0] == "browse" {
		parts = parts[1:]
	}
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrInvalidLink
	}

	kind, ok := parseKind(parts[0])
	if !ok {
		return nil, ErrInvalidLink
	}
	return &Link{Kind: kind, ID: parts[1]}, nil
}
