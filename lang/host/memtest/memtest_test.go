package memtest_test

import (
	"io"
	"testing"
	"time"

	"github.com/cmarrin/m8rscript/lang/host"
	"github.com/cmarrin/m8rscript/lang/host/memtest"
	"github.com/stretchr/testify/require"
)

func TestSystemPrintAndClock(t *testing.T) {
	sys := &memtest.System{}
	sys.Print("hello ")
	sys.Print("world")
	require.Equal(t, "hello world", sys.Output())

	require.Equal(t, int64(0), sys.MonotonicMicros())
	sys.Advance(2 * time.Millisecond)
	require.Equal(t, int64(2000), sys.MonotonicMicros())
	sys.Delay(3 * time.Millisecond)
	require.Equal(t, int64(5000), sys.MonotonicMicros())
}

func TestFileSystemWriteReadRoundtrip(t *testing.T) {
	fs := memtest.NewFileSystem()

	f, err := fs.Open("/a.txt", host.Create)
	require.NoError(t, err)
	_, err = f.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = fs.Open("/a.txt", host.Read)
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))

	n, err = f.Read(buf)
	require.Equal(t, io.EOF, err)
	require.Equal(t, 0, n)
	require.True(t, f.EOF())

	require.Equal(t, []string{"a.txt"}, fs.Names())
	require.Equal(t, int64(3), fs.TotalUsed())
}

func TestFileSystemMissingFile(t *testing.T) {
	fs := memtest.NewFileSystem()
	_, err := fs.Open("/nope.txt", host.Read)
	require.Error(t, err)
}

func TestFileSystemRenameAndRemove(t *testing.T) {
	fs := memtest.NewFileSystem()
	f, err := fs.Open("/old.txt", host.Create)
	require.NoError(t, err)
	_, _ = f.Write([]byte("data"))
	require.NoError(t, f.Close())

	require.NoError(t, fs.Rename("/old.txt", "/new.txt"))
	require.Equal(t, []string{"new.txt"}, fs.Names())

	require.NoError(t, fs.Remove("/new.txt"))
	require.Empty(t, fs.Names())
	require.Error(t, fs.Remove("/new.txt"))
}

func TestFileAppendMode(t *testing.T) {
	fs := memtest.NewFileSystem()
	f, err := fs.Open("/log.txt", host.Create)
	require.NoError(t, err)
	_, _ = f.Write([]byte("first;"))
	require.NoError(t, f.Close())

	f, err = fs.Open("/log.txt", host.Append)
	require.NoError(t, err)
	_, _ = f.Write([]byte("second;"))
	require.NoError(t, f.Close())

	f, err = fs.Open("/log.txt", host.Read)
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, _ := f.Read(buf)
	require.Equal(t, "first;second;", string(buf[:n]))
}

func TestGPIODigitalReadWrite(t *testing.T) {
	g := memtest.NewGPIO()
	require.NoError(t, g.SetPinMode(4, host.Output))
	require.NoError(t, g.DigitalWrite(4, true))
	v, err := g.DigitalRead(4)
	require.NoError(t, err)
	require.True(t, v)
}

func TestGPIOInterruptFires(t *testing.T) {
	g := memtest.NewGPIO()
	fired := 0
	var firedPin int
	require.NoError(t, g.OnInterrupt(7, host.RisingEdge, func(pin int) {
		fired++
		firedPin = pin
	}))
	g.FireInterrupt(7)
	require.Equal(t, 1, fired)
	require.Equal(t, 7, firedPin)
}

func TestTCPListenerConnectAndConnRoundTrip(t *testing.T) {
	ln := memtest.NewTCPListener()
	testEnd := ln.Connect("10.1.1.1")

	scriptEnd, err := ln.Accept()
	require.NoError(t, err)
	require.Equal(t, "10.1.1.1", scriptEnd.RemoteAddr())

	testEnd.Send([]byte("in"))
	buf := make([]byte, 8)
	n, err := scriptEnd.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "in", string(buf[:n]))

	_, err = scriptEnd.Write([]byte("out"))
	require.NoError(t, err)
	require.Equal(t, "out", testEnd.Written())

	require.NoError(t, testEnd.Close())
	_, err = scriptEnd.Read(buf)
	require.Equal(t, io.EOF, err)
}

func TestTCPListenerCloseUnblocksAccept(t *testing.T) {
	ln := memtest.NewTCPListener()
	require.NoError(t, ln.Close())
	_, err := ln.Accept()
	require.Error(t, err)
}

func TestUDPSocketInjectAndWriteTo(t *testing.T) {
	sock := memtest.NewUDPSocket()
	sock.Inject("10.2.2.2", []byte("ping"))

	buf := make([]byte, 8)
	n, addr, err := sock.ReadFrom(buf)
	require.NoError(t, err)
	require.Equal(t, "10.2.2.2", addr)
	require.Equal(t, "ping", string(buf[:n]))

	_, err = sock.WriteTo([]byte("pong"), "10.2.2.2")
	require.NoError(t, err)
	sent := sock.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "10.2.2.2", sent[0].Addr)
	require.Equal(t, "pong", string(sent[0].Data))
}

func TestTimerOneShotAndRepeating(t *testing.T) {
	tm := memtest.NewTimer()
	var oneShotCount, repeatCount int
	tm.After(time.Millisecond, func() { oneShotCount++ })
	stop := tm.Every(time.Millisecond, func() { repeatCount++ })

	tm.FireAll()
	require.Equal(t, 1, oneShotCount)
	require.Equal(t, 1, repeatCount)

	tm.FireAll()
	require.Equal(t, 1, oneShotCount)
	require.Equal(t, 2, repeatCount)

	stop()
	tm.FireAll()
	require.Equal(t, 2, repeatCount)
}
