package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/xeptore/flaw/v8"

	"github.com/xeptore/tidalapi/errutil"
	"github.com/xeptore/tidalapi/httputil"
	"github.com/xeptore/tidalapi/must"
	"github.com/xeptore/tidalapi/tidal"
)

type response struct {
	statusCode int
	body       []byte
	object     Object
	// user is the snapshot the request was built from.
	user *tidal.User
}

// Call sends one request to path and returns the decoded JSON object body.
// Expired tokens are refreshed and the call retried, 429 responses are
// retried after a jittered wait, and remaining HTTP errors are returned as
// *NotFoundError or *APIError.
func (c *Client) Call(ctx context.Context, path string, opts ...CallOption) (Object, error) {
	spec := newRequestSpec(path, opts)

	for refreshes := 0; ; refreshes++ {
		res, err := c.send(ctx, spec)
		if nil != err {
			return nil, err
		}

		if !isHTTPError(res.statusCode) {
			return res.object, nil
		}

		if refreshes < c.maxRefreshRetries && c.isExpiredTokenResponse(spec, res) {
			retry, err := c.coord.refresh(ctx, c)
			if nil != err {
				return nil, err
			}
			if retry {
				spec = spec.withoutAuthorization()
				c.logger.Debug().Str("path", spec.Path).Int("attempt", refreshes+1).Msg("Retrying request after token refresh")
				continue
			}
		}

		return nil, classify(res.statusCode, res.body)
	}
}

// isExpiredTokenResponse excludes the bootstrap endpoint, which is called
// while the refresh gate is held.
func (c *Client) isExpiredTokenResponse(spec RequestSpec, res *response) bool {
	return !spec.IsBootstrap() &&
		nil != res.user &&
		res.user.CanRefresh() &&
		IsTokenExpired(userMessage(res.body))
}

// send repeats attempt while the service answers 429.
func (c *Client) send(ctx context.Context, spec RequestSpec) (*response, error) {
	var res *response
	operation := func() error {
		r, err := c.attempt(ctx, spec)
		if nil != err {
			if errors.Is(err, ErrRateLimited) {
				return err
			}
			return backoff.Permanent(err)
		}
		res = r
		return nil
	}
	notify := func(_ error, wait time.Duration) {
		c.logger.Debug().Str("path", spec.Path).Dur("wait", wait).Msg("Rate limited, waiting before retrying")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify); nil != err {
		return nil, err
	}
	return res, nil
}

func (c *Client) attempt(ctx context.Context, spec RequestSpec) (res *response, err error) {
	var user *tidal.User
	if spec.IsBootstrap() {
		user = c.users.Load()
	} else {
		if err := c.coord.awaitRefresh(ctx); nil != err {
			return nil, err
		}
		u, err := c.AwaitStableSession(ctx)
		if nil != err {
			return nil, err
		}
		user = u
	}

	req, err := c.buildRequest(ctx, spec, user)
	if nil != err {
		return nil, err
	}
	flawP := flaw.P{"request": errutil.HTTPRequestFlawPayload(req)}

	if err := c.throttle.Wait(ctx); nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		return nil, err
	}

	resp, err := c.http.Do(req)
	if nil != err {
		switch {
		case errutil.IsContext(ctx):
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return nil, context.DeadlineExceeded
		default:
			flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
			return nil, flaw.From(fmt.Errorf("failed to send request: %v", err)).Append(flawP)
		}
	}
	defer func() {
		if closeErr := httputil.DrainAndClose(resp); nil != closeErr {
			flawP["err_debug_tree"] = errutil.Tree(closeErr).FlawP()
			closeErr = flaw.From(fmt.Errorf("failed to close response body: %v", closeErr)).Append(flawP)
			switch {
			case nil == err:
				err = closeErr
			case errutil.IsContext(ctx):
				err = flaw.From(errors.New("context was ended")).Join(closeErr)
			case errors.Is(err, context.DeadlineExceeded):
				err = flaw.From(errors.New("timeout has reached")).Join(closeErr)
			case errors.Is(err, ErrRateLimited):
				err = flaw.From(errors.New("too many requests")).Join(closeErr)
			case errutil.IsFlaw(err):
				err = must.BeFlaw(err).Join(closeErr)
			default:
				panic(errutil.UnknownError(err))
			}
		}
	}()
	flawP["response"] = errutil.HTTPResponseFlawPayload(resp)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	respBytes, err := httputil.ReadOptionalResponseBody(ctx, resp)
	if nil != err {
		return nil, err
	}

	var obj Object
	if err := json.Unmarshal(respBytes, &obj); nil != err {
		flawP["response_body"] = string(respBytes)
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to decode response body: %v", err)).Append(flawP)
	}

	return &response{
		statusCode: resp.StatusCode,
		body:       respBytes,
		object:     obj,
		user:       user,
	}, nil
}
