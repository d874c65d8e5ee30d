package builtin_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/builtin"
	"github.com/cmarrin/m8rscript/lang/host"
	"github.com/cmarrin/m8rscript/lang/host/memtest"
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/parser"
)

// runScript parses and runs src against a Global wired with rt, returning
// everything the program printed via rt.System.
func runScript(t *testing.T, rt *builtin.Runtime, src string) string {
	t.Helper()

	atoms := atom.NewTable()
	rt.Atoms = atoms
	rt.Heap = object.NewHeap(0)

	fn, err := parser.Parse([]byte(src), atoms)
	require.NoError(t, err)

	global := builtin.NewGlobal(rt)
	th := machine.NewThread(rt.Heap, atoms, global)
	rt.Thread = th
	require.NoError(t, th.StartExecution(fn))

	status, err := th.Continue(context.Background(), 1_000_000)
	require.NoError(t, err)
	require.Equal(t, machine.StatusFinished, status)

	sys := rt.System.(*memtest.System)
	return sys.Output()
}

func TestBase64RoundTrip(t *testing.T) {
	rt := &builtin.Runtime{System: &memtest.System{}}
	out := runScript(t, rt, `print(Base64.decode(Base64.encode("hello")));`)
	require.Equal(t, "hello", out)
}

func TestJSONStringifyParseRoundTrip(t *testing.T) {
	rt := &builtin.Runtime{System: &memtest.System{}}
	out := runScript(t, rt, `var o={a:1,b:[2,3]}; print(JSON.stringify(JSON.parse(JSON.stringify(o))));`)
	require.Equal(t, `{"a":1,"b":[2,3]}`, out)
}

func TestArrayIteration(t *testing.T) {
	rt := &builtin.Runtime{System: &memtest.System{}}
	out := runScript(t, rt, `
		var a = [10,20,30];
		var s = 0;
		for (x : a) { s += x; }
		print(s);
	`)
	require.Equal(t, "60", out)
}

func TestFreeFunctionsToIntToFloat(t *testing.T) {
	rt := &builtin.Runtime{System: &memtest.System{}}
	out := runScript(t, rt, `print(toInt("42") + toFloat("0.5"));`)
	require.Equal(t, "42.5", out)
}

// startScript is runScript without the run-to-completion assertions: it
// leaves the thread alive so a test can fire host events at it afterwards.
func startScript(t *testing.T, rt *builtin.Runtime, src string) *machine.Thread {
	t.Helper()

	atoms := atom.NewTable()
	rt.Atoms = atoms
	rt.Heap = object.NewHeap(0)

	fn, err := parser.Parse([]byte(src), atoms)
	require.NoError(t, err)

	global := builtin.NewGlobal(rt)
	th := machine.NewThread(rt.Heap, atoms, global)
	rt.Thread = th
	require.NoError(t, th.StartExecution(fn))

	status, err := th.Continue(context.Background(), 1_000_000)
	require.NoError(t, err)
	require.Equal(t, machine.StatusFinished, status)
	return th
}

func TestTCPEventsArriveThroughEventQueue(t *testing.T) {
	ln := memtest.NewTCPListener()
	sys := &memtest.System{}
	rt := &builtin.Runtime{
		System:    sys,
		TCPDialer: func(int) (host.TCPListener, error) { return ln, nil },
	}
	th := startScript(t, rt, `
		TCP.create(8080, function(kind, conn, data) {
			print(kind); print(";");
			if (kind == "ReceivedData") { conn.write("ack:" + data); }
		});
	`)

	conn := ln.Connect("10.0.0.9")
	conn.Send([]byte("ping"))

	// The accept/read goroutines enqueue through FireEvent; the callback
	// only runs once Continue drains the queue on the VM side. The script's
	// conn.write answers the received data and fires SentData back.
	require.Eventually(t, func() bool {
		_, err := th.Continue(context.Background(), 10_000)
		require.NoError(t, err)
		out := sys.Output()
		return strings.Contains(out, "Connected;") &&
			strings.Contains(out, "ReceivedData;") &&
			strings.Contains(out, "SentData;") &&
			conn.Written() == "ack:ping"
	}, 2*time.Second, 5*time.Millisecond)

	// A second connection from the same remote address is a reconnect.
	require.NoError(t, conn.Close())
	_ = ln.Connect("10.0.0.9")
	require.Eventually(t, func() bool {
		_, err := th.Continue(context.Background(), 10_000)
		require.NoError(t, err)
		return strings.Contains(sys.Output(), "Reconnected;")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestUDPReceivedDataCarriesAddrAndPayload(t *testing.T) {
	sock := memtest.NewUDPSocket()
	sys := &memtest.System{}
	rt := &builtin.Runtime{
		System:    sys,
		UDPDialer: func(int) (host.UDPSocket, error) { return sock, nil },
	}
	th := startScript(t, rt, `
		UDP.create(5353, function(kind, addr, data) {
			print(kind); print("/"); print(addr); print("/"); print(data);
		});
	`)

	sock.Inject("192.168.1.7", []byte("hi"))

	require.Eventually(t, func() bool {
		_, err := th.Continue(context.Background(), 10_000)
		require.NoError(t, err)
		return strings.Contains(sys.Output(), "ReceivedData/192.168.1.7/hi")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestGPIOInterruptDeliveredAsEvent(t *testing.T) {
	fake := memtest.NewGPIO()
	sys := &memtest.System{}
	rt := &builtin.Runtime{System: sys, GPIO: fake}
	th := startScript(t, rt, `
		GPIO.onInterrupt(7, GPIO.Trigger.RisingEdge, function(pin) { print(pin); });
	`)

	fake.FireInterrupt(7)

	status, err := th.Continue(context.Background(), 10_000)
	require.NoError(t, err)
	require.Equal(t, machine.StatusNotRunning, status)
	require.Equal(t, "7", sys.Output())
}

func TestGPIODigitalWriteReadRoundTrip(t *testing.T) {
	fake := memtest.NewGPIO()
	rt := &builtin.Runtime{System: &memtest.System{}, GPIO: fake}
	out := runScript(t, rt, `
		GPIO.setPinMode(5, GPIO.PinMode.Output);
		GPIO.digitalWrite(5, 1);
		print(GPIO.digitalRead(5));
	`)
	require.Equal(t, "1", out)
}
