package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/xeptore/tidalapi/errutil"
	"github.com/xeptore/tidalapi/log"
	"github.com/xeptore/tidalapi/tidal"
)

// coordinator serializes token refreshes and session metadata fetches for
// the active user. The refresh gate is always waited on before the session
// gate is taken.
type coordinator struct {
	users       *tidal.UserSlot
	session     Session
	refreshGate *semaphore.Weighted
	sessionGate *semaphore.Weighted
	debounce    time.Duration
	// lastRefresh is only accessed while holding refreshGate.
	lastRefresh time.Time
	now         func() time.Time
	logger      zerolog.Logger
}

func (c *coordinator) awaitRefresh(ctx context.Context) error {
	if err := c.refreshGate.Acquire(ctx, 1); nil != err {
		return err
	}
	c.refreshGate.Release(1)
	return nil
}

func (c *coordinator) awaitStableSession(ctx context.Context, api Caller) (*tidal.User, error) {
	user := c.users.Load()
	if nil == user || user.HasSessionInfo() || nil == c.session {
		return user, nil
	}

	if err := c.awaitRefresh(ctx); nil != err {
		return nil, err
	}
	if err := c.sessionGate.Acquire(ctx, 1); nil != err {
		return nil, err
	}
	defer c.sessionGate.Release(1)

	user = c.users.Load()
	if nil == user || user.HasSessionInfo() {
		return user, nil
	}

	// A refresh may have started while this caller was queued on the session
	// gate.
	if err := c.awaitRefresh(ctx); nil != err {
		return nil, err
	}
	user = c.users.Load()
	if nil == user || user.HasSessionInfo() {
		return user, nil
	}

	c.logger.Debug().Func(user.Log).Msg("Fetching session info")
	updated, err := c.session.GetSession(ctx, api, *user)
	if nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if !c.users.CompareAndSwap(user, updated) {
		// Replaced by a refresh or an explicit login in the meantime, which
		// is fresher than what was just fetched.
		return c.users.Load(), nil
	}
	return updated, nil
}

// refresh reports whether the failed call should be retried.
func (c *coordinator) refresh(ctx context.Context, api Caller) (bool, error) {
	if err := c.refreshGate.Acquire(ctx, 1); nil != err {
		return false, err
	}
	defer c.refreshGate.Release(1)

	if !c.lastRefresh.IsZero() && c.now().Sub(c.lastRefresh) < c.debounce {
		c.logger.Debug().Time("last_refresh", c.lastRefresh).Msg("Token was refreshed recently, retrying with current credentials")
		return true, nil
	}

	user := c.users.Load()
	if nil == user || !user.CanRefresh() || nil == c.session {
		return false, nil
	}

	c.logger.Debug().Func(user.Log).Msg("Refreshing access token")
	refreshed, err := c.session.AttemptTokenRefresh(ctx, *user)
	if nil != err {
		if errutil.IsContext(ctx) {
			return false, ctx.Err()
		}
		c.logger.Warn().Func(log.Flaw(err)).Msg("Token refresh failed")
		return false, nil
	}
	if !c.users.CompareAndSwap(user, refreshed) {
		c.logger.Debug().Msg("Active user was replaced during token refresh, keeping the replacement")
		c.lastRefresh = c.now()
		return true, nil
	}

	withSession, err := c.session.GetSession(ctx, api, *refreshed)
	switch {
	case nil == err:
		c.users.CompareAndSwap(refreshed, withSession)
	case errutil.IsContext(ctx):
		c.lastRefresh = c.now()
		return false, ctx.Err()
	default:
		c.logger.Warn().Func(log.Flaw(err)).Msg("Failed to fetch session info after token refresh, keeping previous session info")
	}

	c.lastRefresh = c.now()
	c.logger.Info().Func(refreshed.Log).Msg("Access token refreshed")
	return true, nil
}
