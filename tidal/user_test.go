package tidal_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xeptore/tidalapi/tidal"
)

func TestUserAuthorizationHeader(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Bearer abc", tidal.User{AccessToken: "abc"}.AuthorizationHeader())                //nolint:exhaustruct
	assert.Equal(t, "MAC abc", tidal.User{AccessToken: "abc", TokenType: "MAC"}.AuthorizationHeader()) //nolint:exhaustruct
}

func TestUserHasSessionInfo(t *testing.T) {
	t.Parallel()

	assert.False(t, tidal.User{SessionID: "s"}.HasSessionInfo())                   //nolint:exhaustruct
	assert.False(t, tidal.User{CountryCode: "US"}.HasSessionInfo())                //nolint:exhaustruct
	assert.True(t, tidal.User{SessionID: "s", CountryCode: "US"}.HasSessionInfo()) //nolint:exhaustruct
}

func TestUserSlot(t *testing.T) {
	t.Parallel()

	var slot tidal.UserSlot
	assert.Nil(t, slot.Load())

	first := &tidal.User{AccessToken: "first"}   //nolint:exhaustruct
	second := &tidal.User{AccessToken: "second"} //nolint:exhaustruct
	slot.Store(first)

	assert.False(t, slot.CompareAndSwap(second, second))
	assert.Same(t, first, slot.Load())
	assert.True(t, slot.CompareAndSwap(first, second))
	assert.Same(t, second, slot.Load())
}

func TestUserSlotConcurrentReadersSeeWholeValues(t *testing.T) {
	t.Parallel()

	var slot tidal.UserSlot
	slot.Store(&tidal.User{AccessToken: "a", RefreshToken: "a"}) //nolint:exhaustruct

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				if i%2 == 0 {
					slot.Store(&tidal.User{AccessToken: "b", RefreshToken: "b"}) //nolint:exhaustruct
					continue
				}
				u := slot.Load()
				assert.Equal(t, u.AccessToken, u.RefreshToken)
			}
		}()
	}
	wg.Wait()
}
