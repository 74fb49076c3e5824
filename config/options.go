package config

import "time"

const (
	DefaultBaseURL             = "https://api.tidal.com/v1/"
	DefaultTokenURL            = "https://auth.tidal.com/v1/oauth2/token" //nolint:gosec
	DefaultItemLimit           = 100
	DefaultRequestTimeout      = 10 * time.Second
	DefaultRefreshDebounce     = 30 * time.Second
	DefaultMaxRefreshRetries   = 2
	DefaultMaxRateLimitRetries = 0
	DefaultCacheMaxSize        = 1000
	DefaultCacheTTL            = 1 * time.Hour
	DefaultCredsDir            = "creds"
)

var (
	TokenRefreshRequestTimeout = 5 * time.Second
	SessionRequestTimeout      = 5 * time.Second
)
