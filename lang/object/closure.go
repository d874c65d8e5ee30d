package object

import (
	"fmt"

	"github.com/cmarrin/m8rscript/lang/value"
)

// Closure is a Function handle plus its captured upvalue cells and bound
// `this`, created at runtime by the CLOSURE opcode when a function
// literal is evaluated.
type Closure struct {
	Fn       *Function
	Upvalues []*Cell
	This     value.Value

	marked bool
}

var (
	_ value.Value = (*Closure)(nil)
	_ Ref         = (*Closure)(nil)
)

// NewClosure returns a Closure over fn with the given captured cells.
func NewClosure(fn *Function, upvalues []*Cell, this value.Value) *Closure {
	return &Closure{Fn: fn, Upvalues: upvalues, This: this}
}

func (c *Closure) String() string { return fmt.Sprintf("function %s() { [compiled code] }", c.Fn.Name) }
func (c *Closure) Type() string   { return "Closure" }
func (c *Closure) Name() string   { return c.Fn.Name }

func (c *Closure) gcMarked() bool     { return c.marked }
func (c *Closure) gcSetMarked(b bool) { c.marked = b }
func (c *Closure) gcMark(h *Heap) {
	markValue(h, c.Fn)
	for _, uv := range c.Upvalues {
		markValue(h, uv)
	}
	markValue(h, c.This)
}
