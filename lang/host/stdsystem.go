package host

import (
	"io"
	"time"
)

// StdSystem is the real-clock, real-console SystemInterface the CLI's Run
// command wires a Thread to (as opposed to memtest.System's fakes): console
// output goes to an io.Writer the caller supplies rather than to a
// package-level logger.
type StdSystem struct {
	Out   io.Writer
	start time.Time
}

// NewStdSystem returns a StdSystem writing to out, with its monotonic clock
// zeroed at the moment of construction.
func NewStdSystem(out io.Writer) *StdSystem {
	return &StdSystem{Out: out, start: time.Now()}
}

var _ SystemInterface = (*StdSystem)(nil)

func (s *StdSystem) Print(str string) { io.WriteString(s.Out, str) }

func (s *StdSystem) MonotonicMicros() int64 { return time.Since(s.start).Microseconds() }

func (s *StdSystem) Delay(d time.Duration) { time.Sleep(d) }
