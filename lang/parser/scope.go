package parser

import (
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/object"
)

// funcState tracks the in-progress compilation of one function: its
// Builder, the enclosing function (nil for the top-level program), the
// upvalues it has captured so far, and the break/continue label stacks for
// loops and switches lexically nested in this function (a nested function
// literal gets its own empty stacks — a `break` cannot reach through a
// function boundary).
type funcState struct {
	parent *funcState
	b      *compiler.Builder

	upvalueIndex map[string]int
	upvalues     []object.UpvalueDesc

	breakLabels    []*compiler.Label
	continueLabels []*compiler.Label
}

// pushFunc starts a new function named name with formalParamCount leading
// locals already reserved (the caller still needs to call b.AddLocal for
// each parameter name), and makes it current.
func (p *Parser) pushFunc(name string, params []string) *funcState {
	fe := &funcState{
		parent:       p.fe,
		b:            compiler.NewBuilder(name, len(params)),
		upvalueIndex: make(map[string]int),
	}
	for _, n := range params {
		fe.b.AddLocal(n)
	}
	p.fe = fe
	return fe
}

// popFunc finalizes the current function and restores the enclosing one.
func (p *Parser) popFunc() (*object.Function, error) {
	fe := p.fe
	fn, err := fe.b.Finish(append([]object.UpvalueDesc(nil), fe.upvalues...))
	p.fe = fe.parent
	return fn, err
}

// ensureUpvalue returns the index, within fe's own Upvalues table, of an
// upvalue bound to name, creating descriptors up the enclosing-function
// chain as needed. It must only be called once name is known not to be a
// local of fe itself.
func (fe *funcState) ensureUpvalue(name string) int {
	if idx, ok := fe.upvalueIndex[name]; ok {
		return idx
	}
	var desc object.UpvalueDesc
	switch {
	case fe.parent == nil:
		// A free identifier in the root function has no enclosing scope to
		// capture from; lang/machine recognizes this descriptor shape
		// (FromParentLocal false, no further parent upvalue chain to walk)
		// and binds the upvalue to a Cell backed by the Global object's
		// property named name instead of a stack slot.
		desc = object.UpvalueDesc{Name: name, FromParentLocal: false, Index: 0}
	default:
		if pidx, ok := fe.parent.b.LocalIndex(name); ok {
			desc = object.UpvalueDesc{Name: name, FromParentLocal: true, Index: pidx}
		} else {
			desc = object.UpvalueDesc{Name: name, FromParentLocal: false, Index: fe.parent.ensureUpvalue(name)}
		}
	}
	idx := len(fe.upvalues)
	fe.upvalues = append(fe.upvalues, desc)
	fe.upvalueIndex[name] = idx
	return idx
}

// pushLoop opens a new break/continue target pair for a loop or switch.
func (fe *funcState) pushLoop(breakLabel, continueLabel *compiler.Label) {
	fe.breakLabels = append(fe.breakLabels, breakLabel)
	fe.continueLabels = append(fe.continueLabels, continueLabel)
}

func (fe *funcState) popLoop() {
	fe.breakLabels = fe.breakLabels[:len(fe.breakLabels)-1]
	fe.continueLabels = fe.continueLabels[:len(fe.continueLabels)-1]
}

func (fe *funcState) currentBreak() (*compiler.Label, bool) {
	if len(fe.breakLabels) == 0 {
		return nil, false
	}
	return fe.breakLabels[len(fe.breakLabels)-1], true
}

// currentContinue returns the innermost loop's continue target, skipping
// switch entries (a switch pushes a break target but no continue target, so
// `continue` inside a switch inside a loop still reaches the loop).
func (fe *funcState) currentContinue() (*compiler.Label, bool) {
	for i := len(fe.continueLabels) - 1; i >= 0; i-- {
		if fe.continueLabels[i] != nil {
			return fe.continueLabels[i], true
		}
	}
	return nil, false
}
