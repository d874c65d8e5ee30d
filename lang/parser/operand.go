package parser

import (
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/value"
)

// operandKind distinguishes the handful of shapes an expression's compiled
// result can take: already resident in a register (opReg, opLocal) or still
// needing a LOAD before it can be used as an r-value (opUpvalue, opProp,
// opElem). opLocal and opReg behave identically for loading purposes; they
// are kept distinct only so store() can refuse to write through a bare
// opReg (a non-l-value, e.g. the result of `a+b`).
type operandKind int

const (
	opInvalid operandKind = iota
	opReg                 // reg already holds the value
	opLocal               // reg is a declared local's register
	opUpvalue             // upvalIdx indexes the current function's Upvalues
	opProp                // reg holds the object; keyOperand is an atom const operand
	opElem                // reg holds the object; keyOperand is an index register or const operand
)

// operand is the parser's uniform handle on "the thing an expression
// production just compiled": either an r-value already sitting in a
// register, or an l-value description (upvalue/property/element) that
// load() and store() know how to turn into LOAD*/STORE* instructions.
type operand struct {
	kind       operandKind
	reg        int // opReg/opLocal/opProp/opElem: register
	upvalIdx   int // opUpvalue
	keyOperand int // opProp/opElem: ABC rc-style operand (const or register)
}

// load returns a register holding o's current value, allocating a fresh
// temp and emitting the appropriate LOAD instruction if o is not already
// resident in a register.
func (p *Parser) load(o operand) int {
	switch o.kind {
	case opReg, opLocal:
		return o.reg
	case opUpvalue:
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.LOADUP, dst, o.upvalIdx, 0)
		return dst
	case opProp:
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.LOADPROP, dst, o.reg, o.keyOperand)
		return dst
	case opElem:
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.LOADELT, dst, o.reg, o.keyOperand)
		return dst
	default:
		p.errorf("internal error: invalid operand")
		return p.loadConst(p.b().Consts().Add(value.Null{})).reg
	}
}

// store writes src into o, or records an error if o is not assignable (a
// bare opReg, the result of a non-l-value expression like `a+b`).
func (p *Parser) store(o operand, src int) {
	switch o.kind {
	case opLocal:
		if src != o.reg {
			p.b().EmitABC(compiler.MOVE, o.reg, src, 0)
		}
	case opUpvalue:
		p.b().EmitABC(compiler.STOREUP, src, o.upvalIdx, 0)
	case opProp:
		p.b().EmitABC(compiler.STOPROP, src, o.reg, o.keyOperand)
	case opElem:
		p.b().EmitABC(compiler.STOELT, src, o.reg, o.keyOperand)
	default:
		p.errorf("invalid assignment target")
	}
}

// loadConst allocates a fresh temp and loads constant-pool entry k into it.
func (p *Parser) loadConst(k int) operand {
	dst := p.b().AllocTemp()
	p.b().EmitABC(compiler.LOADREFK, dst, k, 0)
	return operand{kind: opReg, reg: dst}
}
