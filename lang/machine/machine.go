// Package machine implements m8rscript's cooperative, fuel-budgeted
// register VM: a Thread owns one growable value stack shared by every
// live call frame, a call-frame stack, an event queue, and a reference to the
// heap and atom table the compiled program was built against.
package machine

import (
	"fmt"

	"github.com/cmarrin/m8rscript/lang/value"
)

// Status is returned by Thread.Continue, telling the host what to do next.
type Status int

const (
	// StatusNotRunning means StartExecution was never called, or the
	// previous Continue already finished/errored/terminated.
	StatusNotRunning Status = iota
	// StatusDelay means a native call requested a wall-clock pause; the
	// host should rearm Continue after DelayMS elapses.
	StatusDelay
	// StatusWaiting means a native call is pending an external event
	// (socket accept, DNS lookup); the host should call FireEvent and
	// Continue again once the event arrives.
	StatusWaiting
	// StatusYield means the fuel budget ran out mid-program; the host
	// should call Continue again to resume where execution left off.
	StatusYield
	// StatusFinished means the top-level program ran to completion.
	StatusFinished
	// StatusTerminated means RequestTermination was honored.
	StatusTerminated
	// StatusError means a runtime error aborted the call chain.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotRunning:
		return "NotRunning"
	case StatusDelay:
		return "Delay"
	case StatusWaiting:
		return "Waiting"
	case StatusYield:
		return "Yield"
	case StatusFinished:
		return "Finished"
	case StatusTerminated:
		return "Terminated"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Error kinds the running VM can itself raise; host/IO error kinds are
// raised by lang/host and lang/builtin instead.
const (
	KindWrongNumberOfParams         = "wrong-number-of-params"
	KindInvalidArgumentValue        = "invalid-argument-value"
	KindCannotConvertStringToNumber = "cannot-convert-string-to-number"
	KindBadFormatString             = "bad-format-string"
	KindUnknownFormatSpecifier      = "unknown-format-specifier"
	KindCannotCreateArgumentsArray  = "cannot-create-arguments-array"
	KindPropertyNotCallable         = "property-not-callable"
	KindNotIndexable                = "not-indexable"
	KindOutOfMemory  = "out-of-memory"
	KindStackOverflow = "stack-overflow"
	KindInternalError = "internal-error"
)

// ExecError is a runtime error that aborts the current call chain and is
// reported to the host alongside a non-zero exit code, carrying a stable
// Kind the host can branch on.
type ExecError struct {
	Kind string
	Msg  string
}

func (e *ExecError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newExecError(kind, format string, args ...any) *ExecError {
	return &ExecError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Event is one entry of the FIFO event queue: a callable fired with a
// receiver and argument list, delivered to the running program between
// instructions.
type Event struct {
	Callable value.Value
	This     value.Value
	Args     []value.Value
}
