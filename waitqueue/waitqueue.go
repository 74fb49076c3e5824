package waitqueue

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// WaitQueue caps the number of sends per interval. Unused capacity carries
// over up to limit sends, so short bursts are not delayed.
type WaitQueue struct {
	limiter *rate.Limiter
}

// New returns nil for a non-positive limit or interval. A nil *WaitQueue
// never waits.
func New(limit int, interval time.Duration) *WaitQueue {
	if limit <= 0 || interval <= 0 {
		return nil
	}
	return &WaitQueue{
		limiter: rate.NewLimiter(rate.Every(interval/time.Duration(limit)), limit),
	}
}

func (w *WaitQueue) Wait(ctx context.Context) error {
	if nil == w {
		return nil
	}
	return w.limiter.Wait(ctx)
}
