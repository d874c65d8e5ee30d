package object

import (
	"fmt"

	"github.com/cmarrin/m8rscript/lang/value"
)

// UpvalueDesc describes one upvalue slot of a Function: where the binding
// it captures lives relative to the function's defining environment.
type UpvalueDesc struct {
	Name string
	// FromParentLocal is true when the upvalue captures a local of the
	// immediately enclosing function (by register index, Index); when
	// false, it captures the enclosing function's own upvalue at slot
	// Index, threading the binding down another level.
	FromParentLocal bool
	Index           int
}

// Function is immutable after parse: its code, constants, and upvalue
// descriptors never change once lang/compiler's Builder.Finish returns it. A Function
// is itself a Value so it can live in a constant pool slot and be wrapped
// by a Closure at CLOSURE time; lang/machine reads its exported fields
// directly rather than through a generic call interface, since invoking a
// script function requires pushing a VM frame, not a synchronous Go call.
type Function struct {
	Name             string
	Code             []uint32
	Consts           []value.Value
	LocalNames       []string
	FormalParamCount int
	TempRegCount     int
	Upvalues         []UpvalueDesc

	marked bool
}

var (
	_ value.Value = (*Function)(nil)
	_ Ref         = (*Function)(nil)
)

func (f *Function) String() string { return fmt.Sprintf("function %s() { [compiled code] }", f.Name) }
func (f *Function) Type() string   { return "Function" }

func (f *Function) gcMarked() bool     { return f.marked }
func (f *Function) gcSetMarked(b bool) { f.marked = b }
func (f *Function) gcMark(h *Heap) {
	for _, c := range f.Consts {
		markValue(h, c)
	}
}

// Cell is an upvalue storage cell. It has three modes: open while
// the closed-over frame is still on the stack, closed once that frame
// returns, or global -- a root function has no parent to capture a free
// identifier from, so the parser's upvalue-capture walk bottoms out at a
// sentinel descriptor that lang/machine resolves, at closure-creation time,
// into a Cell bound permanently to a name on the Global object instead of a
// stack slot.
type Cell struct {
	open      bool
	stackIdx  int // valid while open: absolute index into the VM's value stack
	closedVal value.Value

	global     value.HasSetAttrs
	globalName string

	marked bool
}

var (
	_ value.Value = (*Cell)(nil)
	_ Ref         = (*Cell)(nil)
)

// NewOpenCell returns a Cell pointing at stackIdx in the VM's value stack.
func NewOpenCell(stackIdx int) *Cell { return &Cell{open: true, stackIdx: stackIdx} }

// NewGlobalCell returns a Cell that reads and writes name as a property of
// global, for the root function's free identifiers.
func NewGlobalCell(global value.HasSetAttrs, name string) *Cell {
	return &Cell{global: global, globalName: name}
}

func (c *Cell) String() string { return "<upvalue cell>" }
func (c *Cell) Type() string   { return "Cell" }

// Open reports whether c is still open, and if so its stack index. A global
// cell is never open.
func (c *Cell) Open() (int, bool) {
	if c.global != nil {
		return 0, false
	}
	return c.stackIdx, c.open
}

// IsGlobal reports whether c binds to a name on a global object rather than
// a stack slot or a closed snapshot.
func (c *Cell) IsGlobal() bool { return c.global != nil }

// Close transitions c to closed, capturing val as its permanent value. It is
// a no-op on a global cell.
func (c *Cell) Close(val value.Value) {
	if c.global != nil {
		return
	}
	c.open = false
	c.closedVal = val
}

// Get returns the cell's current value; callers must check Open first if
// they need the live stack slot instead of a closed snapshot.
func (c *Cell) Get() value.Value {
	if c.global != nil {
		v, err := c.global.Attr(c.globalName)
		if err != nil || v == nil {
			return value.Undefined{}
		}
		return v
	}
	return c.closedVal
}

// Set stores into a closed or global cell. Open cells are written through
// the VM's stack directly by index.
func (c *Cell) Set(v value.Value) {
	if c.global != nil {
		_ = c.global.SetAttr(c.globalName, v)
		return
	}
	c.closedVal = v
}

func (c *Cell) gcMarked() bool     { return c.marked }
func (c *Cell) gcSetMarked(b bool) { c.marked = b }
func (c *Cell) gcMark(h *Heap) {
	if c.global == nil && !c.open {
		markValue(h, c.closedVal)
	}
}
