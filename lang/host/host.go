// Package host defines the seam between the VM and whatever platform it
// runs on: filesystem, networking, GPIO, and timers. lang/builtin's
// native functions are written against these interfaces, never against a
// concrete OS package directly, so the same compiled program runs
// identically against a real workstation filesystem/socket stack or
// against lang/host/memtest's in-memory fakes in tests.
package host

import "time"

// OpenMode enumerates the filesystem open modes.
type OpenMode int

const (
	Read OpenMode = iota
	ReadUpdate
	Write
	WriteUpdate
	Append
	AppendUpdate
	Create
)

// File is an open filesystem handle.
type File interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
	EOF() bool
}

// FileSystem is the host's storage seam.
type FileSystem interface {
	Open(path string, mode OpenMode) (File, error)
	Mkdir(path string) error
	Rename(oldPath, newPath string) error
	Remove(path string) error
	TotalSize() int64
	TotalUsed() int64
}

// TCPConn is one accepted or dialed TCP connection; its Connected/
// Disconnected/ReceivedData/SentData lifecycle is delivered to scripts as
// machine.Events by whatever drives the listener.
type TCPConn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	RemoteAddr() string
}

// TCPListener accepts inbound TCP connections, capped at 4 concurrent
// connections, each read through a 1024-byte receive buffer.
type TCPListener interface {
	Accept() (TCPConn, error)
	Close() error
	Addr() string
}

// UDPSocket is a connectionless datagram endpoint.
type UDPSocket interface {
	ReadFrom(p []byte) (n int, addr string, err error)
	WriteTo(p []byte, addr string) (int, error)
	Close() error
}

// PinMode enumerates GPIO pin modes.
type PinMode int

const (
	Input PinMode = iota
	Output
	InputPullup
	InputPulldown
	OutputOpenDrain
)

// Trigger enumerates GPIO interrupt trigger conditions.
type Trigger int

const (
	TriggerNone Trigger = iota
	RisingEdge
	FallingEdge
	BothEdges
	Low
	High
)

// GPIO is the host's digital pin seam.
type GPIO interface {
	SetPinMode(pin int, mode PinMode) error
	DigitalRead(pin int) (bool, error)
	DigitalWrite(pin int, value bool) error
	// OnInterrupt arms a callback invoked (asynchronously, delivered as a
	// machine.Event by the host's run loop) when trigger fires on pin.
	OnInterrupt(pin int, trigger Trigger, callback func(pin int)) error
}

// Timer schedules one-shot or repeating callbacks at millisecond
// resolution.
type Timer interface {
	// After arms callback to fire once after d elapses.
	After(d time.Duration, callback func())
	// Every arms callback to fire repeatedly every d, until Stop.
	Every(d time.Duration, callback func()) (stop func())
}

// SystemInterface is the host's console and clock seam: console print plus
// a monotonic microsecond clock, the single collaborator lang/builtin's
// free functions close over.
type SystemInterface interface {
	Print(s string)
	// MonotonicMicros returns a monotonically increasing microsecond
	// counter, the basis for currentTime().
	MonotonicMicros() int64
	// Delay blocks the calling goroutine for d -- used only by host-side
	// test doubles; the VM itself never blocks a goroutine for delay(ms),
	// it suspends via machine.StatusDelay instead.
	Delay(d time.Duration)
}
