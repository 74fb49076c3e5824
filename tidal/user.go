package tidal

import (
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/xeptore/flaw/v8"

	"github.com/xeptore/tidalapi/log"
)

const DefaultTokenType = "Bearer"

// User is the credential set attached to outgoing requests. Values stored in
// a UserSlot must not be mutated; copy, modify and store the copy instead.
type User struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	SessionID    string
	CountryCode  string
	UserID       string
}

func (u User) HasSessionInfo() bool {
	return u.SessionID != "" && u.CountryCode != ""
}

func (u User) CanRefresh() bool {
	return u.RefreshToken != ""
}

func (u User) AuthorizationHeader() string {
	tokenType := strings.TrimSpace(u.TokenType)
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return tokenType + " " + u.AccessToken
}

func (u User) FlawP() flaw.P {
	return flaw.P{
		"access_token":  log.RedactString(u.AccessToken),
		"refresh_token": log.RedactString(u.RefreshToken),
		"token_type":    u.TokenType,
		"session_id":    u.SessionID,
		"country_code":  u.CountryCode,
		"user_id":       u.UserID,
	}
}

func (u User) Log(e *zerolog.Event) {
	e.
		Str("token_type", u.TokenType).
		Str("session_id", u.SessionID).
		Str("country_code", u.CountryCode).
		Str("user_id", u.UserID).
		Bool("can_refresh", u.CanRefresh())
}

// UserSlot holds the single active user. A nil value means requests are sent
// anonymously.
type UserSlot struct {
	p atomic.Pointer[User]
}

func (s *UserSlot) Load() *User {
	return s.p.Load()
}

func (s *UserSlot) Store(u *User) {
	s.p.Store(u)
}

// CompareAndSwap replaces old with next only if no other writer stored a
// different user in between.
func (s *UserSlot) CompareAndSwap(old, next *User) bool {
	return s.p.CompareAndSwap(old, next)
}
