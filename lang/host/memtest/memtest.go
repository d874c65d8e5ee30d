// Package memtest provides in-memory fakes of every lang/host interface,
// so lang/builtin and end-to-end tests can drive filesystem, network, and
// GPIO behavior without a real OS underneath.
package memtest

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmarrin/m8rscript/lang/host"
)

// System is an in-memory host.SystemInterface: console output goes to an
// in-memory buffer and the clock is advanced explicitly by tests rather
// than reading the real wall clock.
type System struct {
	mu     sync.Mutex
	Buf    bytes.Buffer
	Clock  int64 // microseconds
	Delays []time.Duration
}

var _ host.SystemInterface = (*System)(nil)

func (s *System) Print(str string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Buf.WriteString(str)
}

func (s *System) MonotonicMicros() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Clock
}

func (s *System) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Delays = append(s.Delays, d)
	s.Clock += d.Microseconds()
}

// Advance moves the monotonic clock forward by d, for tests that assert
// on currentTime() without sleeping.
func (s *System) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clock += d.Microseconds()
}

// Output returns everything printed so far.
func (s *System) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Buf.String()
}

// FileSystem is an in-memory host.FileSystem backed by a flat name->bytes
// map; Mkdir/Rename/Remove operate on that same flat namespace (no real
// directory tree, since no m8rscript program can observe the difference
// through the File interface alone).
type FileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ host.FileSystem = (*FileSystem)(nil)

func NewFileSystem() *FileSystem { return &FileSystem{files: make(map[string][]byte)} }

func (fs *FileSystem) Open(path string, mode host.OpenMode) (host.File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, exists := fs.files[path]
	switch mode {
	case host.Read, host.ReadUpdate:
		if !exists {
			return nil, fmt.Errorf("file-not-found: %s", path)
		}
	case host.Create:
		data = nil
		fs.files[path] = data
	case host.Write, host.WriteUpdate:
		if !exists {
			fs.files[path] = nil
		}
	case host.Append, host.AppendUpdate:
		if !exists {
			fs.files[path] = nil
		}
	}
	return &memFile{fs: fs, path: path, data: append([]byte(nil), fs.files[path]...), append: mode == host.Append || mode == host.AppendUpdate}, nil
}

func (fs *FileSystem) Mkdir(string) error { return nil }

func (fs *FileSystem) Rename(oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.files[oldPath]
	if !ok {
		return fmt.Errorf("file-not-found: %s", oldPath)
	}
	fs.files[newPath] = data
	delete(fs.files, oldPath)
	return nil
}

func (fs *FileSystem) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[path]; !ok {
		return fmt.Errorf("file-not-found: %s", path)
	}
	delete(fs.files, path)
	return nil
}

func (fs *FileSystem) TotalSize() int64 { return 1 << 20 }

func (fs *FileSystem) TotalUsed() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var n int64
	for _, d := range fs.files {
		n += int64(len(d))
	}
	return n
}

// Names returns every file currently present, sorted, with any leading "/"
// removed, for test assertions.
func (fs *FileSystem) Names() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	names := make([]string, 0, len(fs.files))
	for n := range fs.files {
		names = append(names, strings.TrimPrefix(n, "/"))
	}
	sort.Strings(names)
	return names
}

type memFile struct {
	fs     *FileSystem
	path   string
	data   []byte
	pos    int
	append bool
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.append {
		f.pos = len(f.data)
	}
	end := f.pos + len(p)
	if end > len(f.data) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.pos:end], p)
	f.pos = end

	f.fs.mu.Lock()
	f.fs.files[f.path] = append([]byte(nil), f.data...)
	f.fs.mu.Unlock()
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.pos = int(offset)
	case io.SeekCurrent:
		f.pos += int(offset)
	case io.SeekEnd:
		f.pos = len(f.data) + int(offset)
	}
	return int64(f.pos), nil
}

func (f *memFile) Close() error { return nil }
func (f *memFile) EOF() bool    { return f.pos >= len(f.data) }

// GPIO is an in-memory host.GPIO: pin state and mode live in a map, and
// FireInterrupt lets a test simulate an external signal change.
type GPIO struct {
	mu    sync.Mutex
	modes map[int]host.PinMode
	state map[int]bool
	subs  map[int]func(pin int)
}

var _ host.GPIO = (*GPIO)(nil)

func NewGPIO() *GPIO {
	return &GPIO{modes: make(map[int]host.PinMode), state: make(map[int]bool), subs: make(map[int]func(pin int))}
}

func (g *GPIO) SetPinMode(pin int, mode host.PinMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modes[pin] = mode
	return nil
}

func (g *GPIO) DigitalRead(pin int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state[pin], nil
}

func (g *GPIO) DigitalWrite(pin int, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state[pin] = value
	return nil
}

func (g *GPIO) OnInterrupt(pin int, _ host.Trigger, callback func(pin int)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs[pin] = callback
	return nil
}

// FireInterrupt simulates an external signal change on pin, invoking
// whatever callback OnInterrupt armed for it.
func (g *GPIO) FireInterrupt(pin int) {
	g.mu.Lock()
	cb := g.subs[pin]
	g.mu.Unlock()
	if cb != nil {
		cb(pin)
	}
}

// TCPConn is one in-memory connection: the script side reads whatever the
// test side Sends, and everything the script side writes accumulates for
// the test to assert on.
type TCPConn struct {
	remote string
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written bytes.Buffer
}

var _ host.TCPConn = (*TCPConn)(nil)

func newTCPConn(remote string) *TCPConn {
	return &TCPConn{remote: remote, in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *TCPConn) Read(p []byte) (int, error) {
	select {
	case data := <-c.in:
		return copy(p, data), nil
	case <-c.closed:
		return 0, io.EOF
	}
}

func (c *TCPConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.Write(p)
}

func (c *TCPConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *TCPConn) RemoteAddr() string { return c.remote }

// Send queues data for the script side's next Read.
func (c *TCPConn) Send(data []byte) { c.in <- append([]byte(nil), data...) }

// Written returns everything the script side has written so far.
func (c *TCPConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

// TCPListener is an in-memory host.TCPListener; Connect simulates an
// inbound connection, delivered to whatever goroutine is blocked in Accept.
type TCPListener struct {
	pending chan host.TCPConn
	closed  chan struct{}
	once    sync.Once
}

var _ host.TCPListener = (*TCPListener)(nil)

func NewTCPListener() *TCPListener {
	return &TCPListener{pending: make(chan host.TCPConn, 16), closed: make(chan struct{})}
}

func (l *TCPListener) Accept() (host.TCPConn, error) {
	select {
	case c := <-l.pending:
		return c, nil
	case <-l.closed:
		return nil, fmt.Errorf("listener closed")
	}
}

func (l *TCPListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *TCPListener) Addr() string { return "memtest:0" }

// Connect simulates an inbound connection from remote and returns the
// test's handle on it.
func (l *TCPListener) Connect(remote string) *TCPConn {
	c := newTCPConn(remote)
	l.pending <- c
	return c
}

// Datagram is one (source address, payload) pair a UDPSocket carries.
type Datagram struct {
	Addr string
	Data []byte
}

// UDPSocket is an in-memory host.UDPSocket: Inject queues a datagram for
// the script side's next ReadFrom, and Sent reports what the script side
// transmitted.
type UDPSocket struct {
	in     chan Datagram
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent []Datagram
}

var _ host.UDPSocket = (*UDPSocket)(nil)

func NewUDPSocket() *UDPSocket {
	return &UDPSocket{in: make(chan Datagram, 16), closed: make(chan struct{})}
}

func (u *UDPSocket) ReadFrom(p []byte) (int, string, error) {
	select {
	case d := <-u.in:
		return copy(p, d.Data), d.Addr, nil
	case <-u.closed:
		return 0, "", io.EOF
	}
}

func (u *UDPSocket) WriteTo(p []byte, addr string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sent = append(u.sent, Datagram{Addr: addr, Data: append([]byte(nil), p...)})
	return len(p), nil
}

func (u *UDPSocket) Close() error {
	u.once.Do(func() { close(u.closed) })
	return nil
}

// Inject queues a datagram as if it had arrived from addr.
func (u *UDPSocket) Inject(addr string, data []byte) { u.in <- Datagram{Addr: addr, Data: data} }

// Sent returns every datagram the script side wrote, in order.
func (u *UDPSocket) Sent() []Datagram {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Datagram(nil), u.sent...)
}

// Timer is an in-memory host.Timer that never actually sleeps; tests
// trigger armed callbacks explicitly via Fire/FireAll.
type Timer struct {
	mu      sync.Mutex
	oneshot []func()
	every   map[int]func()
	nextID  int
}

var _ host.Timer = (*Timer)(nil)

func NewTimer() *Timer { return &Timer{every: make(map[int]func())} }

func (t *Timer) After(_ time.Duration, callback func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.oneshot = append(t.oneshot, callback)
}

func (t *Timer) Every(_ time.Duration, callback func()) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.every[id] = callback
	return func() {
		t.mu.Lock()
		delete(t.every, id)
		t.mu.Unlock()
	}
}

// FireAll invokes every pending one-shot and every still-armed repeating
// callback once, then clears the one-shot queue.
func (t *Timer) FireAll() {
	t.mu.Lock()
	oneshot := t.oneshot
	t.oneshot = nil
	var repeating []func()
	for _, cb := range t.every {
		repeating = append(repeating, cb)
	}
	t.mu.Unlock()

	for _, cb := range oneshot {
		cb()
	}
	for _, cb := range repeating {
		cb()
	}
}
