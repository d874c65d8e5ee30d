package machine

import (
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// callFrame records one activation of a Closure: its window into the
// Thread's shared register stack, its program counter, where its eventual
// result is written back, and any upvalue cells nested closures created
// during this activation opened over its own registers.
type callFrame struct {
	closure *object.Closure
	base    int // absolute index into th.stack of this frame's register 0
	pc      int

	this value.Value // LOADTHIS's operand: explicit call-site this, or closure.This as fallback

	hasCaller bool // false only for the root frame
	retReg    int  // register, in the caller's frame, to receive this call's result

	// isConstruct marks a frame pushed by NEW to run a constructor.
	// constructResult is the freshly allocated instance NEW substitutes in
	// place of the constructor's own return value, unless that return value
	// is itself an object.
	isConstruct     bool
	constructResult value.Value

	// actualArgs is the exact slice of argument values this frame was
	// called with, kept around (independent of where they ended up in the
	// register file) so the arguments() builtin can synthesize an Array
	// from it regardless of how many formal parameters the function
	// declares.
	actualArgs []value.Value

	openCells map[int]*object.Cell
}

// openCellFor returns the open Cell over this frame's register reg,
// creating (and heap-registering) one if no nested closure has captured
// that register yet, so two sibling closures capturing the same local share
// one Cell.
func (fr *callFrame) openCellFor(h *object.Heap, reg int) *object.Cell {
	if fr.openCells == nil {
		fr.openCells = make(map[int]*object.Cell)
	}
	if c, ok := fr.openCells[reg]; ok {
		return c
	}
	c := object.NewOpenCell(fr.base + reg)
	object.Alloc(h, c)
	fr.openCells[reg] = c
	return c
}

// closeCells snapshots every open cell this frame created, from the
// frame's own register file, before its stack window is reused by a
// sibling call.
func (fr *callFrame) closeCells(stack []value.Value) {
	for reg, c := range fr.openCells {
		c.Close(stack[fr.base+reg])
	}
}
