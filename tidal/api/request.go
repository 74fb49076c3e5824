package api

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xeptore/flaw/v8"

	"github.com/xeptore/tidalapi/constant"
	"github.com/xeptore/tidalapi/errutil"
	"github.com/xeptore/tidalapi/tidal"
)

// SessionsPath is the session bootstrap endpoint. Calls to it skip refresh
// gating and session metadata resolution.
const SessionsPath = "sessions"

const (
	queryParamSessionID   = "sessionId"
	queryParamCountryCode = "countryCode"
	queryParamLimit       = "limit"
)

// RequestSpec describes a single call. A non-nil Form makes it a POST with a
// form-encoded body.
type RequestSpec struct {
	Path    string
	Query   url.Values
	Header  http.Header
	Form    url.Values
	BaseURL string
}

type CallOption func(s *RequestSpec)

func WithForm(form url.Values) CallOption {
	return func(s *RequestSpec) { s.Form = form }
}

func WithQuery(query url.Values) CallOption {
	return func(s *RequestSpec) { s.Query = query }
}

func WithHeader(header http.Header) CallOption {
	return func(s *RequestSpec) { s.Header = header }
}

func WithBaseURL(baseURL string) CallOption {
	return func(s *RequestSpec) { s.BaseURL = baseURL }
}

func newRequestSpec(path string, opts []CallOption) RequestSpec {
	s := RequestSpec{Path: path, Query: nil, Header: nil, Form: nil, BaseURL: ""}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s RequestSpec) Method() string {
	if nil != s.Form {
		return http.MethodPost
	}
	return http.MethodGet
}

func (s RequestSpec) IsBootstrap() bool {
	return strings.Trim(s.Path, "/") == SessionsPath
}

// withoutAuthorization drops a caller supplied Authorization header so the
// next attempt authenticates as the active user.
func (s RequestSpec) withoutAuthorization() RequestSpec {
	if nil == s.Header || s.Header.Get("Authorization") == "" {
		return s
	}
	s.Header = s.Header.Clone()
	s.Header.Del("Authorization")
	return s
}

func (s RequestSpec) FlawP() flaw.P {
	return flaw.P{
		"path":     s.Path,
		"method":   s.Method(),
		"base_url": s.BaseURL,
		"query":    s.Query.Encode(),
	}
}

// resolveURL joins the path onto the base URL and encodes the caller query
// merged with the parameters derived from user.
func (s RequestSpec) resolveURL(defaultBase *url.URL, user *tidal.User, itemLimit int) (*url.URL, error) {
	base := defaultBase
	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		if nil != err {
			return nil, fmt.Errorf("invalid base url override %q: %v", s.BaseURL, err)
		}
		base = u
	}

	u := base.JoinPath(s.Path)

	query := make(url.Values, len(s.Query)+3)
	maps.Copy(query, s.Query)

	var sessionID, countryCode string
	if nil != user {
		sessionID, countryCode = user.SessionID, user.CountryCode
	}
	query.Set(queryParamSessionID, sessionID)
	query.Set(queryParamCountryCode, countryCode)
	if !query.Has(queryParamLimit) {
		query.Set(queryParamLimit, strconv.Itoa(itemLimit))
	}
	u.RawQuery = query.Encode()
	return u, nil
}

func (c *Client) buildRequest(ctx context.Context, spec RequestSpec, user *tidal.User) (*http.Request, error) {
	flawP := flaw.P{"request_spec": spec.FlawP()}

	reqURL, err := spec.resolveURL(c.baseURL, user, c.itemLimit)
	if nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to resolve request url: %v", err)).Append(flawP)
	}

	var body *strings.Reader
	if nil != spec.Form {
		body = strings.NewReader(spec.Form.Encode())
	}

	var req *http.Request
	if nil != body {
		req, err = http.NewRequestWithContext(ctx, spec.Method(), reqURL.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, spec.Method(), reqURL.String(), nil)
	}
	if nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to create request: %v", err)).Append(flawP)
	}

	for k, vs := range spec.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", constant.UserAgent+"/"+constant.Version)
	}
	if nil != body {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if nil != user && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", user.AuthorizationHeader())
	}
	return req, nil
}
