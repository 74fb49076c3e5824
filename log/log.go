package log

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/pretty"

	"github.com/xeptore/tidalapi/constant"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

func newBaseLogger(w io.Writer) zerolog.Logger {
	return zerolog.
		New(w).
		With().
		Dict(
			"app",
			zerolog.Dict().
				Str("version", constant.Version).
				Str("compilation_time", constant.CompileTime.Format(time.RFC3339)),
		).
		Timestamp().
		Logger().
		Level(zerolog.TraceLevel)
}

func NewPretty(w io.Writer) zerolog.Logger {
	return newBaseLogger(prettyWriter{w})
}

func NewPacked(w io.Writer) zerolog.Logger {
	return newBaseLogger(w)
}

// Nop is handed to components constructed without a logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

type prettyWriter struct {
	out io.Writer
}

func (p prettyWriter) Write(line []byte) (int, error) {
	if n, err := p.out.Write(pretty.Color(pretty.Pretty(line), nil)); nil != err {
		return n, err
	}
	return len(line), nil
}
