// Package builtin installs m8rscript's built-in library surface: the free
// functions (print, printf, println, currentTime, delay, toFloat, toInt,
// toUInt, arguments) and the native proto-objects (Array's
// shared prototype, Base64, JSON, Iterator, GPIO, TCP, UDP, IPAddr) bound
// under the Global object every Thread resolves free identifiers against.
//
// Every native function here is written against lang/value's capability
// interfaces and lang/host's collaborator seams, never against a concrete
// OS package directly, so tests can substitute in-memory fakes for every
// kind of host access this VM exposes to scripts.
package builtin

import (
	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/host"
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// Runtime bundles the collaborators native functions need: the atom table
// and heap a compiled program shares with its Global object, and the host
// seams standing in for real console/filesystem/network/GPIO access.
// A field left nil disables the builtins that need it (e.g. a script-only
// test harness with no GPIO hardware leaves GPIO nil and never installs
// the GPIO global).
type Runtime struct {
	Atoms  *atom.Table
	Heap   *object.Heap
	System host.SystemInterface

	// Thread is set once the owning machine.Thread exists, so TCP/UDP
	// accept/read goroutines -- which must enqueue events rather than touch
	// script state directly -- have a FireEvent gate to deliver through.
	// Builtins that don't need async delivery (Base64, JSON) never read it.
	Thread *machine.Thread

	FS        host.FileSystem
	GPIO      host.GPIO
	Timer     host.Timer
	TCPDialer func(port int) (host.TCPListener, error)
	UDPDialer func(port int) (host.UDPSocket, error)
}

// NewGlobal builds the Global MaterObject every Thread resolves free
// identifiers against, wiring in whatever of rt's collaborators are
// non-nil.
func NewGlobal(rt *Runtime) *object.MaterObject {
	// The Global object is itself a GC root every collection starts from;
	// allocating it in the heap keeps its mark bit covered by the sweep's
	// unmark pass like any other live object.
	g := allocObject(rt)

	installFreeFunctions(g, rt)
	_ = g.SetAttr("arguments", value.ArgumentsMarker{})

	arrayProto := newArrayProto(rt)
	object.SetArrayProto(arrayProto)

	installConstructors(g, rt)

	_ = g.SetAttr("Base64", newBase64Proto(rt))
	_ = g.SetAttr("JSON", newJSONProto(rt))
	_ = g.SetAttr("Iterator", newIteratorProto(rt))

	if rt.GPIO != nil {
		_ = g.SetAttr("GPIO", newGPIOProto(rt))
	}
	if rt.TCPDialer != nil {
		_ = g.SetAttr("TCP", newTCPProto(rt))
	}
	if rt.UDPDialer != nil {
		_ = g.SetAttr("UDP", newUDPProto(rt))
	}
	_ = g.SetAttr("IPAddr", newIPAddrProto(rt))

	return g
}

// native is a small helper constructing a value.NativeFunction bound to no
// receiver (free functions) or to recv (proto-object methods).
func native(name string, recv value.Value, fn value.NativeFunc) value.NativeFunction {
	return value.NativeFunction{FuncName: name, Fn: fn, Receiver: recv}
}

// normal wraps a plain (Value, error) result as the common case of a
// NativeResult that never asks the VM to suspend.
func normal(v value.Value, err error) (value.NativeResult, error) {
	if err != nil {
		return value.NativeResult{}, err
	}
	return value.NativeResult{Value: v, Status: value.StatusNormal}, nil
}

// allocString, allocObject and allocArray register a freshly built heap
// value with rt.Heap (GC triggers on allocation pressure, so every
// runtime allocation -- not just the ones the VM's own opcodes make --
// must count toward it) and return it ready to hand back to a script.
func allocString(rt *Runtime, s string) *object.String {
	v := object.NewString(s)
	object.Alloc(rt.Heap, v)
	return v
}

func allocObject(rt *Runtime) *object.MaterObject {
	v := object.NewMaterObject(rt.Atoms)
	object.Alloc(rt.Heap, v)
	return v
}

func allocArray(rt *Runtime, elems []value.Value) *object.Array {
	v := object.NewArray(elems)
	object.Alloc(rt.Heap, v)
	return v
}

// arg returns the i'th argument, or Undefined if too few were supplied --
// the common "optional trailing argument" pattern free functions use
// (e.g. toFloat(s[, allowWhitespace])).
func arg(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return value.Undefined{}
	}
	return args[i]
}
