package parser

import (
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
)

// binOpcodes maps a non-assigning binary operator token to the opcode that
// computes it (the ABC "ra = rb op rc" group).
var binOpcodes = map[token.Token]compiler.Opcode{
	token.PIPE:    compiler.OR,
	token.CARET:   compiler.XOR,
	token.AMP:     compiler.AND,
	token.EQEQ:    compiler.EQ,
	token.NOTEQ:   compiler.NE,
	token.LT:      compiler.LT,
	token.GT:      compiler.GT,
	token.LE:      compiler.LE,
	token.GE:      compiler.GE,
	token.SHL:     compiler.SHL,
	token.SHR:     compiler.SHR,
	token.SAR:     compiler.SAR,
	token.PLUS:    compiler.ADD,
	token.MINUS:   compiler.SUB,
	token.STAR:    compiler.MUL,
	token.SLASH:   compiler.DIV,
	token.PERCENT: compiler.MOD,
}

// expr parses the comma operator: a sequence of assignment-level
// expressions, evaluated left to right, yielding the last one's value.
func (p *Parser) expr() operand {
	left := p.assignExpr()
	for p.tok() == token.COMMA {
		p.advance()
		left = p.assignExpr()
	}
	return left
}

// assignExpr parses a single assignment-precedence expression (no top-level
// comma) -- what call arguments, array elements, and object property values
// are each made of.
func (p *Parser) assignExpr() operand { return p.arithExpr(1) }

// arithExpr is the precedence-climbing reader: ternary and the
// assignment family are folded into the same loop as the ordinary binary
// operators, since token.LookupOperator already assigns them a precedence
// and associativity.
func (p *Parser) arithExpr(minPrec int) operand {
	left := p.unary()
	for {
		tok := p.tok()

		if tok == token.QUESTION && minPrec <= 2 {
			left = p.ternary(left)
			continue
		}

		if tok == token.ANDAND || tok == token.OROR {
			info, _ := token.LookupOperator(tok)
			if info.Prec < minPrec {
				break
			}
			p.advance()
			left = p.shortCircuit(tok, left, info.Prec+1)
			continue
		}

		info, ok := token.LookupOperator(tok)
		if !ok || info.Prec < minPrec {
			break
		}
		p.advance()
		if info.IsAssign {
			left = p.assignment(left, info)
			continue
		}
		nextMin := info.Prec + 1
		if info.Assoc == token.RightAssoc {
			nextMin = info.Prec
		}
		right := p.arithExpr(nextMin)
		left = p.binaryOp(info.Tok, left, right)
	}
	return left
}

// ternary parses `'?' expr ':' arithExpr` given an already-compiled
// condition operand, branching before compiling either arm so only the
// taken one executes.
func (p *Parser) ternary(cond operand) operand {
	p.advance() // '?'
	condReg := p.load(cond)
	elseLabel := p.b().NewLabel()
	endLabel := p.b().NewLabel()
	p.b().EmitJump(compiler.JF, condReg, elseLabel)

	result := p.b().AllocTemp()
	thenReg := p.load(p.expr())
	p.b().EmitABC(compiler.MOVE, result, thenReg, 0)
	p.b().EmitJump(compiler.JMP, 0, endLabel)

	p.expect(token.COLON)
	p.b().MatchJump(elseLabel)
	elseReg := p.load(p.arithExpr(2))
	p.b().EmitABC(compiler.MOVE, result, elseReg, 0)
	p.b().MatchJump(endLabel)

	return operand{kind: opReg, reg: result}
}

// shortCircuit compiles && and ||: the right operand is only evaluated if
// the left doesn't already decide the result. The skipped path loads a
// boolean literal (0 for falsy &&, 1 for truthy ||) rather than trying to
// preserve either operand's value.
func (p *Parser) shortCircuit(tok token.Token, left operand, rhsMinPrec int) operand {
	lReg := p.load(left)
	result := p.b().AllocTemp()
	skipLabel := p.b().NewLabel()
	endLabel := p.b().NewLabel()
	if tok == token.ANDAND {
		p.b().EmitJump(compiler.JF, lReg, skipLabel)
	} else {
		p.b().EmitJump(compiler.JT, lReg, skipLabel)
	}

	rReg := p.load(p.arithExpr(rhsMinPrec))
	p.b().EmitABC(compiler.MOVE, result, rReg, 0)
	p.b().EmitJump(compiler.JMP, 0, endLabel)

	p.b().MatchJump(skipLabel)
	op := compiler.LOADFALSE
	if tok == token.OROR {
		op = compiler.LOADTRUE
	}
	p.b().EmitABC(op, result, 0, 0)
	p.b().MatchJump(endLabel)

	return operand{kind: opReg, reg: result}
}

// assignment compiles one `=` or compound-assignment step; left has already
// been parsed as an l-value-capable operand. For a compound operator, the
// left side's current value is loaded before the right-hand side is
// evaluated, matching left-to-right evaluation order.
func (p *Parser) assignment(left operand, info token.OperatorInfo) operand {
	var curReg int
	if info.Tok != 0 {
		curReg = p.load(left)
	}
	rhs := p.arithExpr(info.Prec)

	var srcReg int
	if info.Tok == 0 {
		srcReg = p.load(rhs)
	} else {
		rhsReg := p.load(rhs)
		dst := p.b().AllocTemp()
		p.b().EmitABC(binOpcodes[info.Tok], dst, curReg, rhsReg)
		srcReg = dst
	}
	p.store(left, srcReg)
	return operand{kind: opReg, reg: srcReg}
}

func (p *Parser) binaryOp(tok token.Token, left, right operand) operand {
	lReg := p.load(left)
	rReg := p.load(right)
	dst := p.b().AllocTemp()
	op, ok := binOpcodes[tok]
	if !ok {
		p.errorf("internal error: unsupported operator %#v", tok)
		op = compiler.NOP
	}
	p.b().EmitABC(op, dst, lReg, rReg)
	return operand{kind: opReg, reg: dst}
}

// unary parses the prefix operators (++ -- - ~ !), each recursing into
// another unary so `--!x` etc. is accepted, falling through to postfix for
// everything else.
func (p *Parser) unary() operand {
	switch p.tok() {
	case token.INC, token.DEC:
		opTok := p.tok()
		p.advance()
		target := p.unary()
		cur := p.load(target)
		dst := p.b().AllocTemp()
		op := compiler.PREINC
		if opTok == token.DEC {
			op = compiler.PREDEC
		}
		p.b().EmitABC(op, dst, cur, 0)
		p.store(target, dst)
		return operand{kind: opReg, reg: dst}
	case token.MINUS:
		p.advance()
		v := p.load(p.unary())
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.UMINUS, dst, v, 0)
		return operand{kind: opReg, reg: dst}
	case token.TILDE:
		p.advance()
		v := p.load(p.unary())
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.UNEG, dst, v, 0)
		return operand{kind: opReg, reg: dst}
	case token.NOT:
		p.advance()
		v := p.load(p.unary())
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.UNOT, dst, v, 0)
		return operand{kind: opReg, reg: dst}
	default:
		return p.postfix()
	}
}

// postfix parses a primary expression followed by any chain of member
// access (`.name`, `[expr]`), calls (`(args)`), and postfix ++/--.
func (p *Parser) postfix() operand {
	o := p.primary()
	for {
		switch p.tok() {
		case token.DOT:
			p.advance()
			name := p.propertyKeyName()
			objReg := p.load(o)
			o = operand{kind: opProp, reg: objReg, keyOperand: p.atomConstOperand(name)}
		case token.LBRACK:
			p.advance()
			idxReg := p.load(p.expr())
			p.expect(token.RBRACK)
			objReg := p.load(o)
			o = operand{kind: opElem, reg: objReg, keyOperand: idxReg}
		case token.LPAREN:
			o = p.callExpr(o, false)
		case token.INC, token.DEC:
			opTok := p.tok()
			p.advance()
			cur := p.load(o)
			old := p.b().AllocTemp()
			p.b().EmitABC(compiler.MOVE, old, cur, 0)
			op := compiler.POSTINC
			if opTok == token.DEC {
				op = compiler.POSTDEC
			}
			newVal := p.b().AllocTemp()
			p.b().EmitABC(op, newVal, cur, 0)
			p.store(o, newVal)
			o = operand{kind: opReg, reg: old}
		default:
			return o
		}
	}
}

// memberChain parses a primary expression followed only by `.name`/`[expr]`
// access, stopping before any call -- used by `new` to isolate the
// constructor reference from its argument list.
func (p *Parser) memberChain() operand {
	o := p.primary()
	for {
		switch p.tok() {
		case token.DOT:
			p.advance()
			name := p.propertyKeyName()
			objReg := p.load(o)
			o = operand{kind: opProp, reg: objReg, keyOperand: p.atomConstOperand(name)}
		case token.LBRACK:
			p.advance()
			idxReg := p.load(p.expr())
			p.expect(token.RBRACK)
			objReg := p.load(o)
			o = operand{kind: opElem, reg: objReg, keyOperand: idxReg}
		default:
			return o
		}
	}
}

func (p *Parser) propertyKeyName() string {
	switch p.tok() {
	case token.IDENT:
		n := p.tokVal().String
		p.advance()
		return n
	case token.STRING:
		n := p.tokVal().String
		p.advance()
		return n
	default:
		p.errorf("syntax error: expected property name, got %#v", p.tok())
		return ""
	}
}

// primary parses the atoms of the expression grammar: literals, `this`,
// identifiers, parenthesized expressions, array/object/function literals,
// and `new`.
func (p *Parser) primary() operand {
	switch p.tok() {
	case token.INT:
		v := p.tokVal()
		p.advance()
		return p.loadConst(p.b().Consts().Add(value.Int(int32(v.Int))))
	case token.FLOAT:
		v := p.tokVal()
		p.advance()
		return p.loadConst(p.b().Consts().Add(value.Float(v.Float)))
	case token.STRING:
		v := p.tokVal()
		p.advance()
		return p.loadConst(p.b().Consts().Add(value.StringLiteral{Text: v.String}))
	case token.IDENT:
		name := p.tokVal().String
		p.advance()
		return p.resolveIdent(name)
	case token.THIS:
		p.advance()
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.LOADTHIS, dst, 0, 0)
		return operand{kind: opReg, reg: dst}
	case token.NULL:
		p.advance()
		return p.loadConst(p.b().Consts().Add(value.Null{}))
	case token.LPAREN:
		p.advance()
		inner := p.expr()
		p.expect(token.RPAREN)
		return inner
	case token.LBRACK:
		return p.arrayLiteral()
	case token.LBRACE:
		return p.objectLiteral()
	case token.FUNCTION:
		return p.functionLiteral()
	case token.NEW:
		return p.newExpr()
	default:
		p.errorf("syntax error: unexpected %#v", p.tok())
		p.advance()
		dst := p.b().AllocTemp()
		p.b().EmitABC(compiler.LOADNULL, dst, 0, 0)
		return operand{kind: opReg, reg: dst}
	}
}

func (p *Parser) arrayLiteral() operand {
	p.expect(token.LBRACK)
	dst := p.b().AllocTemp()
	p.b().EmitABC(compiler.LOADLITA, dst, 0, 0)
	if p.tok() != token.RBRACK {
		for {
			v := p.load(p.assignExpr())
			p.b().EmitABC(compiler.APPENDELT, v, dst, 0)
			if p.tok() != token.COMMA {
				break
			}
			p.advance()
			if p.tok() == token.RBRACK {
				break
			}
		}
	}
	p.expect(token.RBRACK)
	return operand{kind: opReg, reg: dst}
}

func (p *Parser) objectLiteral() operand {
	p.expect(token.LBRACE)
	dst := p.b().AllocTemp()
	p.b().EmitABC(compiler.LOADLITO, dst, 0, 0)
	if p.tok() != token.RBRACE {
		for {
			name := p.propertyKeyName()
			p.expect(token.COLON)
			v := p.load(p.assignExpr())
			k := p.atomConstOperand(name)
			p.b().EmitABC(compiler.APPENDPROP, v, dst, k)
			if p.tok() != token.COMMA {
				break
			}
			p.advance()
			if p.tok() == token.RBRACE {
				break
			}
		}
	}
	p.expect(token.RBRACE)
	return operand{kind: opReg, reg: dst}
}

// functionLiteral parses `function [name] ( params ) block` as an
// expression, producing a CLOSURE over the freshly compiled nested
// Function.
func (p *Parser) functionLiteral() operand {
	p.expect(token.FUNCTION)
	name := ""
	if p.tok() == token.IDENT {
		name = p.tokVal().String
		p.advance()
	}
	params := p.paramList()
	dst := p.compileFunctionBody(name, params)
	return operand{kind: opReg, reg: dst}
}

// compileFunctionBody compiles a nested function's parameter list (already
// parsed by the caller into params) and `{ ... }` body into its own
// funcState, then emits a CLOSURE in the enclosing function over the
// resulting constant, returning the register holding the new closure.
func (p *Parser) compileFunctionBody(name string, params []string) int {
	p.pushFunc(name, params)
	p.block()
	p.b().EmitOp(compiler.END)
	fn, err := p.popFunc()
	if err != nil {
		p.errs.Addf(p.pos(), "%s", err.Error())
	}
	dst := p.b().AllocTemp()
	if fn == nil {
		return dst
	}
	k := p.b().Consts().Add(fn)
	p.b().EmitABC(compiler.CLOSURE, dst, k, 0)
	return dst
}

func (p *Parser) paramList() []string {
	p.expect(token.LPAREN)
	var params []string
	if p.tok() != token.RPAREN {
		for {
			params = append(params, p.identName())
			if p.tok() != token.COMMA {
				break
			}
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	return params
}

// callExpr compiles `'(' args ')'` against an already-resolved callee
// operand, implementing the calling convention this repo settled on for
// CALL/NEW (see DESIGN.md): the callable sits in a register r, `this` in
// r+1 (Undefined for a free call, the receiver object for a method call),
// and the n arguments in r+2..r+n+1, contiguous.
func (p *Parser) callExpr(callee operand, isNew bool) operand {
	p.expect(token.LPAREN)
	base := p.b().Mark()
	fnReg := p.b().AllocTemp()
	thisReg := p.b().AllocTemp()

	switch callee.kind {
	case opProp:
		p.b().EmitABC(compiler.LOADPROP, fnReg, callee.reg, callee.keyOperand)
		p.b().EmitABC(compiler.MOVE, thisReg, callee.reg, 0)
	case opElem:
		p.b().EmitABC(compiler.LOADELT, fnReg, callee.reg, callee.keyOperand)
		p.b().EmitABC(compiler.MOVE, thisReg, callee.reg, 0)
	default:
		fv := p.load(callee)
		p.b().EmitABC(compiler.MOVE, fnReg, fv, 0)
		undef := p.b().Consts().Add(value.Undefined{})
		p.b().EmitABC(compiler.LOADREFK, thisReg, undef, 0)
	}

	var argRegs []int
	if p.tok() != token.RPAREN {
		for {
			argReg := p.load(p.assignExpr())
			stable := p.b().AllocTemp()
			if stable != argReg {
				p.b().EmitABC(compiler.MOVE, stable, argReg, 0)
			}
			argRegs = append(argRegs, stable)
			if p.tok() != token.COMMA {
				break
			}
			p.advance()
		}
	}
	p.expect(token.RPAREN)

	for i, r := range argRegs {
		dst := base + 2 + i
		if dst != r {
			p.b().EmitABC(compiler.MOVE, dst, r, 0)
		}
	}
	p.b().FreeTemps(base + 1)

	op := compiler.CALL
	if isNew {
		op = compiler.NEW
	}
	p.b().EmitAN(op, fnReg, int32(len(argRegs)))
	return operand{kind: opReg, reg: fnReg}
}

// emitMethodCall0 emits a zero-argument method call `obj.<atomOperand>()`
// using the same func/this register layout as callExpr, for the for-in
// loop's it.done()/it.next() protocol calls.
func (p *Parser) emitMethodCall0(objReg int, atomOperand int) int {
	base := p.b().Mark()
	fnReg := p.b().AllocTemp()
	thisReg := p.b().AllocTemp()
	p.b().EmitABC(compiler.LOADPROP, fnReg, objReg, atomOperand)
	p.b().EmitABC(compiler.MOVE, thisReg, objReg, 0)
	p.b().EmitAN(compiler.CALL, fnReg, 0)
	p.b().FreeTemps(base + 1)
	return fnReg
}

// newExpr parses `new` followed by a member-access chain and an optional
// argument list (bare `new Foo` is a zero-argument construction).
func (p *Parser) newExpr() operand {
	p.expect(token.NEW)
	callee := p.memberChain()
	if p.tok() == token.LPAREN {
		return p.callExpr(callee, true)
	}

	base := p.b().Mark()
	fnReg := p.b().AllocTemp()
	thisReg := p.b().AllocTemp()
	switch callee.kind {
	case opProp:
		p.b().EmitABC(compiler.LOADPROP, fnReg, callee.reg, callee.keyOperand)
	case opElem:
		p.b().EmitABC(compiler.LOADELT, fnReg, callee.reg, callee.keyOperand)
	default:
		fv := p.load(callee)
		p.b().EmitABC(compiler.MOVE, fnReg, fv, 0)
	}
	undef := p.b().Consts().Add(value.Undefined{})
	p.b().EmitABC(compiler.LOADREFK, thisReg, undef, 0)
	p.b().FreeTemps(base + 1)
	p.b().EmitAN(compiler.NEW, fnReg, 0)
	return operand{kind: opReg, reg: fnReg}
}
