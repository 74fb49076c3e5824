package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrAPI         = errors.New("api error")
	ErrRateLimited = errors.New("too many requests")
)

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Message
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound //nolint:errorlint
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI //nolint:errorlint
}

// tokenExpiredPhrase is how the service words an expired access token in
// the userMessage field of error responses.
const tokenExpiredPhrase = "The token has expired"

// IsTokenExpired is the only place expiry is inferred from message text.
func IsTokenExpired(userMessage string) bool {
	return strings.Contains(userMessage, tokenExpiredPhrase)
}

func isHTTPError(statusCode int) bool {
	return statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices
}

func userMessage(body []byte) string {
	return gjson.GetBytes(body, "userMessage").String()
}

// errorMessage prefers errors[0].detail, then userMessage, then the whole
// body in compact form.
func errorMessage(body []byte) string {
	for _, path := range []string{"errors.0.detail", "userMessage"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type != gjson.Null {
			return v.String()
		}
	}
	return string(pretty.Ugly(body))
}

// classify returns nil for successful responses.
func classify(statusCode int, body []byte) error {
	switch {
	case !isHTTPError(statusCode):
		return nil
	case statusCode == http.StatusNotFound:
		return &NotFoundError{Message: errorMessage(body)}
	default:
		return &APIError{StatusCode: statusCode, Message: errorMessage(body)}
	}
}
