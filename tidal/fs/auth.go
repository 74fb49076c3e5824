package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/xeptore/flaw/v8"

	"github.com/xeptore/tidalapi/errutil"
	"github.com/xeptore/tidalapi/must"
	"github.com/xeptore/tidalapi/tidal"
)

const TokenFileName = "token.json"

// TokenFile is the path of a JSON credentials file shared with the login
// tool that originally wrote it.
type TokenFile string

func (f TokenFile) path() string {
	return string(f)
}

func TokenFileFrom(dir string) TokenFile {
	return TokenFile(filepath.Join(dir, TokenFileName))
}

type TokenFileContent struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	UserID       string `json:"user_id,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

// User returns the credentials without session metadata, which is resolved
// from the service on first use. The stored country code is kept as a hint.
func (c TokenFileContent) User() tidal.User {
	return tidal.User{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		SessionID:    "",
		CountryCode:  c.CountryCode,
		UserID:       c.UserID,
	}
}

func (c TokenFileContent) Expired(now time.Time) bool {
	return c.ExpiresAt > 0 && now.After(time.Unix(c.ExpiresAt, 0))
}

func TokenFileContentOf(u tidal.User, expiresAt time.Time) TokenFileContent {
	var exp int64
	if !expiresAt.IsZero() {
		exp = expiresAt.Unix()
	}
	return TokenFileContent{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
		TokenType:    u.TokenType,
		ExpiresAt:    exp,
		UserID:       u.UserID,
		CountryCode:  u.CountryCode,
	}
}

// Read returns os.ErrNotExist unwrapped when the file is missing.
func (f TokenFile) Read() (c *TokenFileContent, err error) {
	file, err := os.OpenFile(f.path(), os.O_RDONLY, 0o0600)
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		flawP := flaw.P{"path": f.path(), "err_debug_tree": errutil.Tree(err).FlawP()}
		return nil, flaw.From(fmt.Errorf("failed to open token file: %v", err)).Append(flawP)
	}
	defer func() {
		if closeErr := file.Close(); nil != closeErr {
			flawP := flaw.P{"path": f.path(), "err_debug_tree": errutil.Tree(closeErr).FlawP()}
			closeErr = flaw.From(fmt.Errorf("failed to close token file: %v", closeErr)).Append(flawP)
			switch {
			case nil == err:
				err = closeErr
			default:
				err = must.BeFlaw(err).Join(closeErr)
			}
		}
	}()

	if err := json.NewDecoder(file).Decode(&c); nil != err {
		flawP := flaw.P{"path": f.path(), "err_debug_tree": errutil.Tree(err).FlawP()}
		return nil, flaw.From(fmt.Errorf("failed to decode token file: %v", err)).Append(flawP)
	}
	if nil == c || c.AccessToken == "" {
		return nil, flaw.From(errors.New("token file has no access token")).Append(flaw.P{"path": f.path()})
	}

	return c, nil
}

// Write replaces the file contents atomically so a concurrent reader never
// observes a partially written token.
func (f TokenFile) Write(c TokenFileContent) error {
	flawP := flaw.P{"path": f.path()}

	dir := filepath.Dir(f.path())
	if err := os.MkdirAll(dir, 0o0700); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to create token file directory: %v", err)).Append(flawP)
	}

	tmp, err := os.CreateTemp(dir, "."+TokenFileName+".*")
	if nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to create temporary token file: %v", err)).Append(flawP)
	}
	flawP["temp_path"] = tmp.Name()
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o0600); nil != err {
		_ = tmp.Close()
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to set token file permissions: %v", err)).Append(flawP)
	}

	if err := json.NewEncoder(tmp).EncodeWithOption(c); nil != err {
		_ = tmp.Close()
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to encode token file: %v", err)).Append(flawP)
	}

	if err := tmp.Sync(); nil != err {
		_ = tmp.Close()
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to sync token file: %v", err)).Append(flawP)
	}

	if err := tmp.Close(); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to close token file: %v", err)).Append(flawP)
	}

	if err := os.Rename(tmp.Name(), f.path()); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return flaw.From(fmt.Errorf("failed to replace token file: %v", err)).Append(flawP)
	}
	return nil
}
