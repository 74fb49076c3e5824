package httputil_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tidalapi/errutil"
	"github.com/xeptore/tidalapi/httputil"
)

func newResponse(body string) *http.Response {
	return &http.Response{ //nolint:exhaustruct
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestReadOptionalResponseBody(t *testing.T) {
	t.Parallel()

	t.Run("non_empty", func(t *testing.T) {
		t.Parallel()
		b, err := httputil.ReadOptionalResponseBody(t.Context(), newResponse(`{"id":1}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":1}`, string(b))
	})

	t.Run("read_failure_is_flaw", func(t *testing.T) {
		t.Parallel()
		resp := &http.Response{Body: io.NopCloser(failingReader{err: io.ErrUnexpectedEOF})} //nolint:exhaustruct
		_, err := httputil.ReadOptionalResponseBody(t.Context(), resp)
		require.Error(t, err)
		assert.True(t, errutil.IsFlaw(err))
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		b, err := httputil.ReadOptionalResponseBody(t.Context(), newResponse(""))
		require.NoError(t, err)
		assert.Empty(t, b)
	})
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestReadResponseBodyCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	resp := &http.Response{Body: io.NopCloser(failingReader{err: context.Canceled})} //nolint:exhaustruct
	_, err := httputil.ReadOptionalResponseBody(ctx, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	t.Parallel()

	body := &trackingBody{Reader: strings.NewReader("left over"), closed: false}
	require.NoError(t, httputil.DrainAndClose(&http.Response{Body: body})) //nolint:exhaustruct
	assert.True(t, body.closed)
	n, _ := body.Read(make([]byte, 1))
	assert.Zero(t, n)
}
