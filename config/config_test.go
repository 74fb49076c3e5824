package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/tidalapi/config"
)

func TestFromStringAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromString("auth:\n  client_id: abc\n")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, config.DefaultItemLimit, cfg.API.ItemLimit)
	assert.Equal(t, 30*time.Second, cfg.API.RefreshDebounce)
	assert.Equal(t, config.DefaultMaxRefreshRetries, cfg.API.MaxRefreshRetries)
	assert.Zero(t, cfg.API.MaxRateLimitRetries)
	assert.Equal(t, config.DefaultTokenURL, cfg.Auth.TokenURL)
	assert.Equal(t, "abc", cfg.Auth.ClientID)
}

func TestFromStringOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromString(`
api:
  base_url: https://example.test/v1/
  item_limit: 50
  request_timeout: 3s
  refresh_debounce: 1m
  max_rate_limit_retries: 5
  throttle:
    limit: 20
    interval: 1m
auth:
  creds_dir: /tmp/creds
  client_id: abc
cache:
  max_size: 10
  ttl: 5m
`)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/v1/", cfg.API.BaseURL)
	assert.Equal(t, 50, cfg.API.ItemLimit)
	assert.Equal(t, 3*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.API.RefreshDebounce)
	assert.Equal(t, uint64(5), cfg.API.MaxRateLimitRetries)
	assert.Equal(t, config.Throttle{Limit: 20, Interval: time.Minute}, cfg.API.Throttle)
	assert.Equal(t, "/tmp/creds", cfg.Auth.CredsDir)
	assert.Equal(t, int64(10), cfg.Cache.MaxSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing client id":  "api:\n  item_limit: 10\n",
		"relative base url":  "api:\n  base_url: /v1\nauth:\n  client_id: abc\n",
		"zero item limit":    "api:\n  item_limit: -1\nauth:\n  client_id: abc\n",
		"half throttle":      "api:\n  throttle:\n    limit: 3\nauth:\n  client_id: abc\n",
		"negative debounce":  "api:\n  refresh_debounce: -1s\nauth:\n  client_id: abc\n",
		"malformed document": "api: [",
	}
	for name, doc := range tests {
		_, err := config.FromString(doc)
		assert.Error(t, err, name)
	}
}

func TestFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  client_id: abc\n"), 0o600))

	cfg, err := config.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Auth.ClientID)

	_, err = config.FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
