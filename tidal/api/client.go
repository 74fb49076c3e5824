package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/xeptore/tidalapi/cache"
	"github.com/xeptore/tidalapi/config"
	"github.com/xeptore/tidalapi/log"
	"github.com/xeptore/tidalapi/ratelimit"
	"github.com/xeptore/tidalapi/tidal"
	"github.com/xeptore/tidalapi/waitqueue"
)

// Object is a decoded JSON object response.
type Object map[string]any

// Decode converts o into v, typically a struct with json tags.
func (o Object) Decode(v any) error {
	b, err := json.Marshal(o)
	if nil != err {
		return fmt.Errorf("failed to encode object: %v", err)
	}
	if err := json.Unmarshal(b, v); nil != err {
		return fmt.Errorf("failed to decode object into %T: %v", v, err)
	}
	return nil
}

type Caller interface {
	Call(ctx context.Context, path string, opts ...CallOption) (Object, error)
}

// Session owns credential refresh and session metadata retrieval. Both
// methods return a new user value and never mutate the one they receive.
type Session interface {
	AttemptTokenRefresh(ctx context.Context, user tidal.User) (*tidal.User, error)
	GetSession(ctx context.Context, api Caller, user tidal.User) (*tidal.User, error)
}

type Client struct {
	baseURL           *url.URL
	itemLimit         int
	http              *http.Client
	users             *tidal.UserSlot
	coord             *coordinator
	maxRefreshRetries int
	newBackOff        func() backoff.BackOff
	throttle          *waitqueue.WaitQueue
	cache             *cache.Cache[Object]
	cacheTTL          time.Duration
	logger            zerolog.Logger
}

var _ Caller = (*Client)(nil)

type Option func(c *Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithItemLimit(limit int) Option {
	return func(c *Client) { c.itemLimit = limit }
}

func WithRefreshDebounce(d time.Duration) Option {
	return func(c *Client) { c.coord.debounce = d }
}

func WithMaxRefreshRetries(n int) Option {
	return func(c *Client) { c.maxRefreshRetries = n }
}

// WithBackOff replaces the policy applied between 429 retries.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

func WithMaxRateLimitRetries(n uint64) Option {
	return func(c *Client) {
		c.newBackOff = func() backoff.BackOff { return ratelimit.NewBackOff(n) }
	}
}

func WithThrottle(wq *waitqueue.WaitQueue) Option {
	return func(c *Client) { c.throttle = wq }
}

func WithCache(objects *cache.Cache[Object], ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = objects
		c.cacheTTL = ttl
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.coord.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.coord.now = now }
}

func WithUser(u *tidal.User) Option {
	return func(c *Client) { c.users.Store(u) }
}

// New returns a client sending requests relative to baseURL. A nil session
// disables token refresh and session metadata resolution.
func New(baseURL string, session Session, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if nil != err {
		return nil, fmt.Errorf("invalid base url %q: %v", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	users := new(tidal.UserSlot)
	logger := log.Nop()
	c := &Client{
		baseURL:           u,
		itemLimit:         config.DefaultItemLimit,
		http:              &http.Client{Timeout: config.DefaultRequestTimeout}, //nolint:exhaustruct
		users:             users,
		coord:             newCoordinator(users, session, config.DefaultRefreshDebounce, logger),
		maxRefreshRetries: config.DefaultMaxRefreshRetries,
		newBackOff:        func() backoff.BackOff { return ratelimit.NewBackOff(config.DefaultMaxRateLimitRetries) },
		throttle:          nil,
		cache:             nil,
		cacheTTL:          0,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromConfig builds a client from the api configuration section.
func FromConfig(cfg config.API, session Session, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}), //nolint:exhaustruct
		WithItemLimit(cfg.ItemLimit),
		WithRefreshDebounce(cfg.RefreshDebounce),
		WithMaxRefreshRetries(cfg.MaxRefreshRetries),
		WithMaxRateLimitRetries(cfg.MaxRateLimitRetries),
		WithThrottle(waitqueue.New(cfg.Throttle.Limit, cfg.Throttle.Interval)),
	}
	return New(cfg.BaseURL, session, append(base, opts...)...)
}

// User returns a snapshot of the active user, or nil when anonymous.
func (c *Client) User() *tidal.User {
	return c.users.Load()
}

// SetUser replaces the active user, e.g. after an explicit login.
func (c *Client) SetUser(u tidal.User) {
	c.users.Store(&u)
}

func (c *Client) ClearUser() {
	c.users.Store(nil)
}

// AwaitStableSession waits for any in-flight refresh and makes sure the
// active user has session metadata. It returns nil for anonymous clients.
func (c *Client) AwaitStableSession(ctx context.Context) (*tidal.User, error) {
	return c.coord.awaitStableSession(ctx, c)
}

func newCoordinator(users *tidal.UserSlot, session Session, debounce time.Duration, logger zerolog.Logger) *coordinator {
	return &coordinator{
		users:       users,
		session:     session,
		refreshGate: semaphore.NewWeighted(1),
		sessionGate: semaphore.NewWeighted(1),
		debounce:    debounce,
		lastRefresh: time.Time{},
		now:         time.Now,
		logger:      logger,
	}
}
