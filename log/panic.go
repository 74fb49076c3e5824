package log

import (
	"bytes"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// skippedPanicFrames drops the goroutine header and the debug.Stack,
// Panic and deferred recover frames from the rendered stack.
const skippedPanicFrames = 9

func Panic(recovered any) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		lines := bytes.Split(debug.Stack(), []byte("\n"))
		if len(lines) > skippedPanicFrames {
			lines = lines[skippedPanicFrames:]
		}
		e.Dict(
			"panic",
			zerolog.Dict().
				Any("content", recovered).
				Bytes("stack_traces", bytes.Join(lines, []byte("\n"))),
		)
	}
}
