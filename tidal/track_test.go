package tidal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/tidalapi/tidal"
)

func ptrOf(s string) *string { return &s }

func TestCompleteTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Foo", tidal.CompleteTitle("Foo", nil))
	assert.Equal(t, "Foo (Bar)", tidal.CompleteTitle("Foo", ptrOf("Bar")))
	assert.Equal(t, "Foo (Bar)", tidal.CompleteTitle("Foo (Bar)", ptrOf("Bar")))
	assert.Equal(t, "Foo", tidal.CompleteTitle("Foo", ptrOf("")))
}

func TestJoinArtists(t *testing.T) {
	t.Parallel()

	artists := []tidal.TrackArtist{
		{Name: "A", Type: "MAIN"},
		{Name: "B", Type: "FEATURED"},
		{Name: "C", Type: "MAIN"},
		{Name: "D", Type: "FEATURED"},
	}
	assert.Equal(t, "A & C (feat. B & D)", tidal.JoinArtists(artists))
	assert.Equal(t, "A", tidal.JoinArtists(artists[:1]))
	assert.Empty(t, tidal.JoinArtists(nil))
}
