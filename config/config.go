package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API   API   `json:"api"   yaml:"api"`
	Auth  Auth  `json:"auth"  yaml:"auth"`
	Cache Cache `json:"cache" yaml:"cache"`
}

type API struct {
	BaseURL             string        `json:"base_url"               yaml:"base_url"`
	ItemLimit           int           `json:"item_limit"             yaml:"item_limit"`
	RequestTimeout      time.Duration `json:"request_timeout"        yaml:"request_timeout"`
	RefreshDebounce     time.Duration `json:"refresh_debounce"       yaml:"refresh_debounce"`
	MaxRefreshRetries   int           `json:"max_refresh_retries"    yaml:"max_refresh_retries"`
	MaxRateLimitRetries uint64        `json:"max_rate_limit_retries" yaml:"max_rate_limit_retries"`
	Throttle            Throttle      `json:"throttle"               yaml:"throttle"`
}

// Throttle caps outgoing requests to Limit per Interval. Zero disables it.
type Throttle struct {
	Limit    int           `json:"limit"    yaml:"limit"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

type Auth struct {
	CredsDir     string `json:"creds_dir"     yaml:"creds_dir"`
	ClientID     string `json:"client_id"     yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
	TokenURL     string `json:"token_url"     yaml:"token_url"`
}

type Cache struct {
	MaxSize int64         `json:"max_size" yaml:"max_size"`
	TTL     time.Duration `json:"ttl"      yaml:"ttl"`
}

func Default() Config {
	return Config{
		API: API{
			BaseURL:             DefaultBaseURL,
			ItemLimit:           DefaultItemLimit,
			RequestTimeout:      DefaultRequestTimeout,
			RefreshDebounce:     DefaultRefreshDebounce,
			MaxRefreshRetries:   DefaultMaxRefreshRetries,
			MaxRateLimitRetries: DefaultMaxRateLimitRetries,
			Throttle:            Throttle{Limit: 0, Interval: 0},
		},
		Auth: Auth{
			CredsDir:     DefaultCredsDir,
			ClientID:     "",
			ClientSecret: "",
			TokenURL:     DefaultTokenURL,
		},
		Cache: Cache{
			MaxSize: DefaultCacheMaxSize,
			TTL:     DefaultCacheTTL,
		},
	}
}

func (cfg *Config) validate() error {
	if cfg.API.BaseURL == "" {
		return errors.New("api base url is empty")
	}
	if u, err := url.Parse(cfg.API.BaseURL); nil != err || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url %q is not an absolute url", cfg.API.BaseURL)
	}

	if cfg.API.ItemLimit <= 0 {
		return errors.New("api item limit must be positive")
	}

	if cfg.API.RequestTimeout < 0 {
		return errors.New("api request timeout must not be negative")
	}

	if cfg.API.RefreshDebounce < 0 {
		return errors.New("api refresh debounce must not be negative")
	}

	if cfg.API.MaxRefreshRetries < 0 {
		return errors.New("api max refresh retries must not be negative")
	}

	if (cfg.API.Throttle.Limit > 0) != (cfg.API.Throttle.Interval > 0) {
		return errors.New("api throttle limit and interval must be set together")
	}

	if cfg.Auth.CredsDir == "" {
		return errors.New("auth credentials dir is empty")
	}

	if cfg.Auth.ClientID == "" {
		return errors.New("auth client id is empty")
	}

	if cfg.Auth.TokenURL == "" {
		return errors.New("auth token url is empty")
	}

	if cfg.Cache.MaxSize < 0 {
		return errors.New("cache max size must not be negative")
	}

	return nil
}

func FromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if nil != err {
		return nil, fmt.Errorf("failed to read config file %q: %v", filePath, err)
	}

	cfg, err := parse(data)
	if nil != err {
		return nil, fmt.Errorf("failed to load config file %q: %v", filePath, err)
	}
	return cfg, nil
}

func FromString(data string) (*Config, error) {
	return parse([]byte(data))
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); nil != err {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if err := cfg.validate(); nil != err {
		return nil, fmt.Errorf("validation failed: %v", err)
	}

	return &cfg, nil
}
