package constant

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
)

const UserAgent = "tidalapi"

var (
	//go:embed version
	version string
	// Version is trimmed from the embedded version file.
	Version = strings.TrimSpace(version)

	// compileTime is overridden at build time with -ldflags "-X".
	compileTime = "2025-01-01T00:00:00Z"
	CompileTime time.Time
)

func init() {
	t, err := time.Parse(time.RFC3339, compileTime)
	if nil != err {
		panic(fmt.Errorf("could not parse compile time %q, make sure it is set in RFC3339 format at build time: %v", compileTime, err))
	}
	CompileTime = t
}
