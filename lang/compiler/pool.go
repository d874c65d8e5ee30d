package compiler

import (
	"github.com/cmarrin/m8rscript/lang/value"
	"golang.org/x/exp/slices"
)

// ConstPool is a per-function constant pool admitting integers, floats,
// string literals, atoms, and nested function handles. Entries are
// deduplicated by linear scan; pools stay small (a few hundred entries at
// most), so a hash index would buy nothing.
type ConstPool struct {
	entries []value.Value
}

// Add inserts v if not already present and returns its ABC operand value
// (already biased by MaxRegister+1, ready to drop straight into an
// instruction's rb/rc field).
func (p *ConstPool) Add(v value.Value) int {
	if i, ok := p.find(v); ok {
		return ConstOperand(i)
	}
	p.entries = append(p.entries, v)
	return ConstOperand(len(p.entries) - 1)
}

func (p *ConstPool) find(v value.Value) (int, bool) {
	i := slices.IndexFunc(p.entries, func(e value.Value) bool {
		return sameConstant(e, v)
	})
	if i < 0 {
		return 0, false
	}
	return i, true
}

func sameConstant(a, b value.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case value.Int:
		return av == b.(value.Int)
	case value.Float:
		return av == b.(value.Float)
	case value.StringLiteral:
		return av.Text == b.(value.StringLiteral).Text
	case value.AtomConst:
		return av == b.(value.AtomConst)
	default:
		return a == b
	}
}

// Values returns the pool's entries in index order; the returned slice
// must not be mutated.
func (p *ConstPool) Values() []value.Value { return p.entries }

// Len reports the number of distinct constants so far.
func (p *ConstPool) Len() int { return len(p.entries) }
