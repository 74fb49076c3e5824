package tidal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tidalapi/tidal"
)

func TestParseLink(t *testing.T) {
	t.Parallel()

	t.Run("valid links", func(t *testing.T) {
		t.Parallel()

		tests := map[string]tidal.Link{
			"https://tidal.com/browse/mix/0160636492b28a3b2fe1e24ef6b94d": {Kind: tidal.LinkKindMix, ID: "0160636492b28a3b2fe1e24ef6b94d"},
			"https://www.tidal.com/browse/album/123456789":                {Kind: tidal.LinkKindAlbum, ID: "123456789"},
			"https://listen.tidal.com/artist/123456789":                   {Kind: tidal.LinkKindArtist, ID: "123456789"},
			"https://tidal.com/track/42/":                                 {Kind: tidal.LinkKindTrack, ID: "42"},
			"https://tidal.com/browse/playlist/8d5b-4c1a":                 {Kind: tidal.LinkKindPlaylist, ID: "8d5b-4c1a"},
		}

		for link, expected := range tests {
			actual, err := tidal.ParseLink(link)
			require.NoError(t, err, link)
			assert.Equal(t, expected, *actual, link)
		}
	})

	t.Run("invalid links", func(t *testing.T) {
		t.Parallel()

		tests := []string{
			"http://tidal.com/browse/track/1",
			"https://example.com/browse/track/1",
			"https://tidal.com/browse/podcast/1",
			"https://tidal.com/browse/track",
			"https://tidal.com/a/b/c/d",
			"not a link",
		}

		for _, link := range tests {
			_, err := tidal.ParseLink(link)
			assert.ErrorIs(t, err, tidal.ErrInvalidLink, link)
		}
	})
}
