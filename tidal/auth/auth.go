package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/xeptore/flaw/v8"
	"golang.org/x/oauth2"
	"gopkg.in/matryer/try.v1"

	"github.com/xeptore/tidalapi/config"
	"github.com/xeptore/tidalapi/errutil"
	"github.com/xeptore/tidalapi/log"
	"github.com/xeptore/tidalapi/must"
	"github.com/xeptore/tidalapi/ratelimit"
	"github.com/xeptore/tidalapi/tidal"
	"github.com/xeptore/tidalapi/tidal/api"
	tidalfs "github.com/xeptore/tidalapi/tidal/fs"
)

const (
	maxSessionAttempts   = 3
	errCodeInvalidGrant  = "invalid_grant"
	errCodeInvalidClient = "invalid_client"
	errCodeUnauthorized  = "unauthorized_client"
)

// ErrUnauthorized is returned when there are no stored credentials or the
// refresh token was rejected. A new login is required in both cases.
var ErrUnauthorized = errors.New("unauthorized")

// Auth refreshes access tokens with the OAuth2 refresh grant, persists them
// to the token file and resolves session metadata.
type Auth struct {
	file           tidalfs.TokenFile
	oauth          oauth2.Config
	http           *http.Client
	refreshTimeout time.Duration
	sessionTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

var _ api.Session = (*Auth)(nil)

func New(cfg config.Auth, logger zerolog.Logger) *Auth {
	style := oauth2.AuthStyleInParams
	if cfg.ClientSecret != "" {
		style = oauth2.AuthStyleInHeader
	}
	return &Auth{
		file: tidalfs.TokenFileFrom(cfg.CredsDir),
		oauth: oauth2.Config{ //nolint:exhaustruct
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{ //nolint:exhaustruct
				TokenURL:  cfg.TokenURL,
				AuthStyle: style,
			},
		},
		http:           &http.Client{Timeout: config.TokenRefreshRequestTimeout}, //nolint:exhaustruct
		refreshTimeout: config.TokenRefreshRequestTimeout,
		sessionTimeout: config.SessionRequestTimeout,
		now:            time.Now,
		logger:         logger,
	}
}

// Load reads the stored credentials. The returned user has no session
// metadata yet.
func (a *Auth) Load() (*tidal.User, error) {
	content, err := a.file.Read()
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if content.Expired(a.now()) {
		a.logger.Debug().Time("expires_at", time.Unix(content.ExpiresAt, 0)).Msg("Stored access token has expired, it will be refreshed on first use")
	}
	user := content.User()
	return &user, nil
}

func (a *Auth) AttemptTokenRefresh(ctx context.Context, user tidal.User) (*tidal.User, error) {
	if !user.CanRefresh() {
		return nil, ErrUnauthorized
	}

	flawP := flaw.P{"user": user.FlawP(), "token_url": a.oauth.Endpoint.TokenURL}

	reqCtx, cancel := context.WithTimeout(context.WithValue(ctx, oauth2.HTTPClient, a.http), a.refreshTimeout)
	defer cancel()

	tok, err := a.oauth.TokenSource(reqCtx, &oauth2.Token{RefreshToken: user.RefreshToken}).Token() //nolint:exhaustruct
	if nil != err {
		retrieveErr := new(oauth2.RetrieveError)
		switch {
		case errutil.IsContext(ctx):
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return nil, context.DeadlineExceeded
		case errors.As(err, &retrieveErr) && isRejection(retrieveErr):
			a.logger.Debug().Str("error_code", retrieveErr.ErrorCode).Msg("Refresh token was rejected")
			return nil, ErrUnauthorized
		default:
			flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
			return nil, flaw.From(fmt.Errorf("failed to refresh access token: %v", err)).Append(flawP)
		}
	}

	refreshed := user
	refreshed.AccessToken = tok.AccessToken
	refreshed.RefreshToken = lo.CoalesceOrEmpty(tok.RefreshToken, user.RefreshToken)
	refreshed.TokenType = lo.CoalesceOrEmpty(tok.TokenType, user.TokenType)
	if userID := extraString(tok, "user_id"); userID != "" {
		refreshed.UserID = userID
	}

	if err := a.file.Write(tidalfs.TokenFileContentOf(refreshed, tok.Expiry)); nil != err {
		return nil, must.BeFlaw(err).Append(flawP)
	}
	return &refreshed, nil
}

func isRejection(err *oauth2.RetrieveError) bool {
	switch err.ErrorCode {
	case errCodeInvalidGrant, errCodeInvalidClient, errCodeUnauthorized:
		return true
	}
	return nil != err.Response && err.Response.StatusCode == http.StatusUnauthorized
}

// extraString reads a string or numeric field of the token response.
func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

type sessionResponse struct {
	SessionID   string      `json:"sessionId"`
	CountryCode string      `json:"countryCode"`
	UserID      json.Number `json:"userId"`
}

// GetSession fetches session metadata with user's credentials. Transport
// faults are retried a few times, HTTP errors are not.
func (a *Auth) GetSession(ctx context.Context, caller api.Caller, user tidal.User) (*tidal.User, error) {
	flawP := flaw.P{"user": user.FlawP()}

	var obj api.Object
	err := try.Do(func(attempt int) (retry bool, err error) {
		attemptRemained := attempt < maxSessionAttempts
		if attempt > 1 {
			if err := sleep(ctx, ratelimit.RetryWait()); nil != err {
				return false, err
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, a.sessionTimeout)
		defer cancel()

		res, err := caller.Call(reqCtx, api.SessionsPath, api.WithHeader(http.Header{"Authorization": {user.AuthorizationHeader()}}))
		if nil != err {
			switch {
			case errutil.IsContext(ctx):
				return false, ctx.Err()
			case errors.Is(err, context.DeadlineExceeded):
				return attemptRemained, context.DeadlineExceeded
			case errutil.IsFlaw(err):
				a.logger.Debug().Int("attempt", attempt).Func(log.Flaw(err)).Msg("Session request failed")
				return attemptRemained, err
			default:
				return false, err
			}
		}
		obj = res
		return false, nil
	})
	if nil != err {
		if errutil.IsFlaw(err) {
			return nil, must.BeFlaw(err).Append(flawP)
		}
		return nil, err
	}

	var res sessionResponse
	if err := obj.Decode(&res); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to decode session response: %v", err)).Append(flawP)
	}
	if res.SessionID == "" || res.CountryCode == "" {
		flawP["session_id"] = res.SessionID
		flawP["country_code"] = res.CountryCode
		return nil, flaw.From(errors.New("session response is missing session id or country code")).Append(flawP)
	}

	updated := user
	updated.SessionID = res.SessionID
	updated.CountryCode = res.CountryCode
	if userID := res.UserID.String(); userID != "" {
		updated.UserID = userID
	}
	a.logger.Debug().Func(updated.Log).Msg("Session info fetched")
	return &updated, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
