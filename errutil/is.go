package errutil

import (
	"context"
	"errors"
)

// IsContext reports whether ctx itself has ended, as opposed to an error
// merely wrapping a context error from some inner deadline.
func IsContext(ctx context.Context) bool {
	err := ctx.Err()
	return nil != err && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
