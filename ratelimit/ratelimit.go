package ratelimit

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	MinRetryWait = 100 * time.Millisecond
	MaxRetryWait = 1000 * time.Millisecond

	LookupConcurrency = 4
)

// RetryWait returns a random duration in [MinRetryWait, MaxRetryWait).
func RetryWait() time.Duration {
	return MinRetryWait + rand.N(MaxRetryWait-MinRetryWait) //nolint:gosec
}

// Jitter is a backoff.BackOff that waits RetryWait between every attempt.
type Jitter struct{}

func (Jitter) NextBackOff() time.Duration { return RetryWait() }

func (Jitter) Reset() {}

// NewBackOff returns the backoff policy used for 429 responses. A zero
// maxRetries retries until ctx ends.
func NewBackOff(maxRetries uint64) backoff.BackOff {
	var b backoff.BackOff = Jitter{}
	if maxRetries > 0 {
		b = backoff.WithMaxRetries(b, maxRetries)
	}
	return b
}
