package tracer

import (
	"fmt"

	"github.com/bangzek/clock"
)

// InfoLogFunc and DebugLogFunc receive the package's log output when set.
// Both are nil by default: the library is silent unless the embedding
// program wires them up (e.g. to log.Printf).
var (
	InfoLogFunc  func(format string, a ...any)
	DebugLogFunc func(format string, a ...any)
)

var ctime = clock.New()

// SetClock swaps the package clock, used by tests to script time.
func SetClock(c clock.Clock) {
	ctime = c
}

func log(format string, a ...any) {
	if InfoLogFunc != nil {
		InfoLogFunc(format, a...)
	}
}

func debugLog(format string, a ...any) {
	if DebugLogFunc != nil {
		DebugLogFunc(format, a...)
	}
}

// Log captures both log streams, prefixed "I:" and "D:", for assertions.
type Log struct {
	Msgs []string
}

func NewLog() *Log {
	l := new(Log)
	InfoLogFunc = func(format string, a ...any) {
		l.Msgs = append(l.Msgs, "I:"+fmt.Sprintf(format, a...))
	}
	DebugLogFunc = func(format string, a ...any) {
		l.Msgs = append(l.Msgs, "D:"+fmt.Sprintf(format, a...))
	}
	return l
}
