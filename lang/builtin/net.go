package builtin

import (
	"sync/atomic"

	"github.com/cmarrin/m8rscript/lang/host"
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// maxTCPConnections caps concurrent accepted connections per listener.
const maxTCPConnections = 4

// tcpRecvBufSize is the per-connection receive buffer size.
const tcpRecvBufSize = 1024

// newTCPProto builds the `TCP` global: `create(port, callback)` opens a
// listener via rt.TCPDialer and delivers the connection lifecycle --
// Connected/Reconnected/Disconnected/ReceivedData(conn, data)/SentData --
// to callback as machine.Events, fired through rt.Thread so delivery
// happens between instructions. A host-side accept/read goroutine must
// never touch script state directly, only enqueue; every event's first
// payload is the connection handle it concerns.
func newTCPProto(rt *Runtime) *proto {
	p := newProto(rt, "TCP")
	p.set("create", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		port := intArg(arg(args, 0))
		cb, ok := arg(args, 1).(value.Callable)
		if !ok {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "TCP.create: callback is not callable"}
		}
		ln, err := rt.TCPDialer(port)
		if err != nil {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInternalError, Msg: "TCP.create: " + err.Error()}
		}
		go acceptLoop(rt, ln, cb)
		return normal(newListenerHandle(rt, ln), nil)
	})
	return p
}

// tcpSocket is the script-visible handle on one accepted connection:
// `.write(data)`, `.close()`, and a read-only `.addr`. It is a plain Go
// value rather than a heap MaterObject because it is constructed on the
// accept goroutine, which must not touch the heap or the atom table; its
// method NativeFunctions are built on demand in Attr, which only ever runs
// on the VM goroutine.
type tcpSocket struct {
	rt   *Runtime
	conn host.TCPConn
	cb   value.Callable
}

var (
	_ value.Value    = (*tcpSocket)(nil)
	_ value.HasAttrs = (*tcpSocket)(nil)
)

func (s *tcpSocket) String() string { return "[object TCPConnection " + s.conn.RemoteAddr() + "]" }
func (s *tcpSocket) Type() string   { return "TCPConnection" }

func (s *tcpSocket) Attr(name string) (value.Value, error) {
	switch name {
	case "write":
		return native("TCP.write", s, func(_ value.Value, args []value.Value) (value.NativeResult, error) {
			if _, err := s.conn.Write([]byte(stringArg(arg(args, 0)))); err != nil {
				return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInternalError, Msg: "TCP.write: " + err.Error()}
			}
			fire(s.rt, s.cb, "SentData", s)
			return normal(value.Undefined{}, nil)
		}), nil
	case "close":
		return native("TCP.close", s, func(value.Value, []value.Value) (value.NativeResult, error) {
			return normal(value.Undefined{}, s.conn.Close())
		}), nil
	case "addr":
		return litString(s.conn.RemoteAddr()), nil
	}
	return nil, nil
}

func (s *tcpSocket) AttrNames() []string { return []string{"write", "close", "addr"} }

// acceptLoop owns the listener: it enforces the connection cap, tells a
// remote address it has seen before apart from a fresh one (Reconnected vs
// Connected), and hands each accepted connection its own read loop.
func acceptLoop(rt *Runtime, ln host.TCPListener, cb value.Callable) {
	var active int32
	seen := make(map[string]bool)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		if atomic.LoadInt32(&active) >= maxTCPConnections {
			_ = conn.Close()
			continue
		}
		atomic.AddInt32(&active, 1)

		sock := &tcpSocket{rt: rt, conn: conn, cb: cb}
		kind := "Connected"
		if seen[conn.RemoteAddr()] {
			kind = "Reconnected"
		}
		seen[conn.RemoteAddr()] = true
		fire(rt, cb, kind, sock)
		go tcpReadLoop(rt, sock, &active)
	}
}

func tcpReadLoop(rt *Runtime, sock *tcpSocket, active *int32) {
	buf := make([]byte, tcpRecvBufSize)
	for {
		n, err := sock.conn.Read(buf)
		if n > 0 {
			fire(rt, sock.cb, "ReceivedData", sock, litString(string(buf[:n])))
		}
		if err != nil {
			fire(rt, sock.cb, "Disconnected", sock)
			atomic.AddInt32(active, -1)
			return
		}
	}
}

// fire delivers one event through Thread.FireEvent, the single gate an
// accept/read goroutine may reach script state through. Everything an
// event carries must be built without touching the heap or the atom table:
// both belong to the VM goroutine, so string payloads ride as immutable
// StringLiteral values rather than heap Strings.
func fire(rt *Runtime, cb value.Callable, kind string, data ...value.Value) {
	if rt.Thread == nil {
		return
	}
	args := append([]value.Value{litString(kind)}, data...)
	rt.Thread.FireEvent(machine.Event{Callable: cb, This: value.Undefined{}, Args: args})
}

func litString(s string) value.Value { return value.StringLiteral{Text: s} }

// newListenerHandle wraps an open listener as the object TCP.create
// returns: `.close()` stops accepting, `.addr` names the bound endpoint.
func newListenerHandle(rt *Runtime, ln host.TCPListener) *object.MaterObject {
	obj := allocObject(rt)
	_ = obj.SetAttr("close", native("close", obj, func(value.Value, []value.Value) (value.NativeResult, error) {
		return normal(value.Undefined{}, ln.Close())
	}))
	_ = obj.SetAttr("addr", allocString(rt, ln.Addr()))
	return obj
}

// newUDPProto builds the `UDP` global: `create(port, callback)`.
func newUDPProto(rt *Runtime) *proto {
	p := newProto(rt, "UDP")
	p.set("create", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		port := intArg(arg(args, 0))
		cb, ok := arg(args, 1).(value.Callable)
		if !ok {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "UDP.create: callback is not callable"}
		}
		sock, err := rt.UDPDialer(port)
		if err != nil {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInternalError, Msg: "UDP.create: " + err.Error()}
		}
		go udpReadLoop(rt, sock, cb)
		return normal(newUDPHandle(rt, sock, cb), nil)
	})
	return p
}

func udpReadLoop(rt *Runtime, sock host.UDPSocket, cb value.Callable) {
	buf := make([]byte, tcpRecvBufSize)
	for {
		n, addr, err := sock.ReadFrom(buf)
		if err != nil {
			return
		}
		// ReceivedData carries two positional payloads: source addr, then data.
		fire(rt, cb, "ReceivedData", litString(addr), litString(string(buf[:n])))
	}
}

// newUDPHandle wraps the bound socket as the script-visible object a UDP
// `create` call returns: `.write(data, addr)` and `.close()`, with a
// SentData event fired back to the create callback after each successful
// send.
func newUDPHandle(rt *Runtime, sock host.UDPSocket, cb value.Callable) *object.MaterObject {
	obj := allocObject(rt)
	_ = obj.SetAttr("write", native("write", obj, func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		if _, err := sock.WriteTo([]byte(stringArg(arg(args, 0))), stringArg(arg(args, 1))); err != nil {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInternalError, Msg: "UDP.write: " + err.Error()}
		}
		fire(rt, cb, "SentData")
		return normal(value.Undefined{}, nil)
	}))
	_ = obj.SetAttr("close", native("close", obj, func(value.Value, []value.Value) (value.NativeResult, error) {
		return normal(value.Undefined{}, sock.Close())
	}))
	return obj
}

// newIPAddrProto builds the `IPAddr` global, a thin string-formatting
// helper over host address strings.
func newIPAddrProto(rt *Runtime) *proto {
	p := newProto(rt, "IPAddr")
	p.set("toString", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		return normal(allocString(rt, stringArg(arg(args, 0))), nil)
	})
	return p
}
