package log

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/xeptore/flaw/v8"
)

// Flaw renders err with its records, joined errors and stack traces when it
// is a *flaw.Flaw, and as a plain error field otherwise.
func Flaw(err error) func(e *zerolog.Event) {
	return func(e *zerolog.Event) {
		flawErr := new(flaw.Flaw)
		if !errors.As(err, &flawErr) {
			e.Err(err)
			return
		}

		e.
			Dict("error", errorDict(flawErr.Inner, flawErr.InnerType, flawErr.InnerSyntaxRepr)).
			Array("records", flawRecords(flawErr)).
			Array("joined_errors", flawJoinedErrors(flawErr)).
			Array("stack_traces", flawStackTraces(flawErr))
	}
}

func errorDict(message, typeName, syntaxRepr string) *zerolog.Event {
	return zerolog.
		Dict().
		Str("message", message).
		Str("type_name", typeName).
		Str("syntax_representation", syntaxRepr)
}

func flawRecords(f *flaw.Flaw) *zerolog.Array {
	arr := zerolog.Arr()
	for _, r := range f.Records {
		d := zerolog.Dict().Str("function", r.Function)
		b, err := json.MarshalWithOption(r.Payload, json.UnorderedMap(), json.DisableNormalizeUTF8(), json.DisableHTMLEscape())
		if nil != err {
			d.Dict("payload", zerolog.Dict().Str("error", err.Error()).Str("raw", fmt.Sprintf("%#+v", r.Payload)))
		} else {
			d.RawJSON("payload", b)
		}
		arr.Dict(d)
	}
	return arr
}

func flawJoinedErrors(f *flaw.Flaw) *zerolog.Array {
	arr := zerolog.Arr()
	for _, j := range f.JoinedErrors {
		d := zerolog.Dict().Dict("error", errorDict(j.Message, j.TypeName, j.SyntaxRepr))
		if st := j.CallerStackTrace; nil != st {
			d.Dict("caller_stack_trace", location(st.File, st.Line, st.Function))
		} else {
			d.Stringer("caller_stack_trace", nil)
		}
		arr.Dict(d)
	}
	return arr
}

func flawStackTraces(f *flaw.Flaw) *zerolog.Array {
	arr := zerolog.Arr()
	for _, st := range f.StackTrace {
		arr.Dict(location(st.File, st.Line, st.Function))
	}
	return arr
}

func location(file string, line int, function string) *zerolog.Event {
	return zerolog.Dict().Str("location", fmt.Sprintf("%s:%d", file, line)).Str("function", function)
}
