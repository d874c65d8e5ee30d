package parser

import (
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
)

// statement parses and compiles one statement. Every temporary register
// allocated while compiling it is reclaimed before returning: an l-value
// and any scratch value never persist across a statement boundary.
func (p *Parser) statement() {
	mark := p.b().Mark()
	switch p.tok() {
	case token.LBRACE:
		p.block()
	case token.VAR:
		p.varStmt()
	case token.IF:
		p.ifStmt()
	case token.SWITCH:
		p.switchStmt()
	case token.WHILE:
		p.whileStmt()
	case token.DO:
		p.doWhileStmt()
	case token.FOR:
		p.forStmt()
	case token.BREAK:
		p.breakStmt()
	case token.CONTINUE:
		p.continueStmt()
	case token.RETURN:
		p.returnStmt()
	case token.FUNCTION:
		p.functionStmt()
	case token.CLASS:
		p.classStmt()
	case token.DELETE:
		p.deleteStmt()
	case token.SEMI:
		p.advance()
	default:
		p.exprStmt()
	}
	p.b().FreeTemps(mark)
}

func (p *Parser) exprStmt() {
	p.expr()
	p.expectSemi()
}

func (p *Parser) varStmt() {
	p.advance() // 'var'
	p.varDeclOne()
	for p.tok() == token.COMMA {
		p.advance()
		p.varDeclOne()
	}
	p.expectSemi()
}

// varDeclOne parses one `name [= expr]` declaration, declaring name as a
// local of the current function if it isn't one already (redeclaring an
// existing local is not an error).
func (p *Parser) varDeclOne() {
	name := p.identName()
	if name == "" {
		p.recover()
		return
	}
	idx, exists := p.b().LocalIndex(name)
	if !exists {
		idx = p.b().AddLocal(name)
	}
	if p.tok() == token.EQ {
		p.advance()
		v := p.load(p.assignExpr())
		p.b().EmitABC(compiler.MOVE, idx, v, 0)
	}
}

func (p *Parser) ifStmt() {
	p.advance()
	p.expect(token.LPAREN)
	cond := p.load(p.expr())
	p.expect(token.RPAREN)

	elseLabel := p.b().NewLabel()
	p.b().EmitJump(compiler.JF, cond, elseLabel)
	p.statement()
	if p.tok() == token.ELSE {
		endLabel := p.b().NewLabel()
		p.b().EmitJump(compiler.JMP, 0, endLabel)
		p.b().MatchJump(elseLabel)
		p.advance()
		p.statement()
		p.b().MatchJump(endLabel)
	} else {
		p.b().MatchJump(elseLabel)
	}
}

func (p *Parser) whileStmt() {
	p.advance()
	p.expect(token.LPAREN)
	top := p.b().Here()
	cond := p.load(p.expr())
	p.expect(token.RPAREN)

	endLabel := p.b().NewLabel()
	contLabel := p.b().NewLabel()
	p.b().EmitJump(compiler.JF, cond, endLabel)

	p.fe.pushLoop(endLabel, contLabel)
	p.statement()
	p.b().MatchJump(contLabel)
	p.b().EmitJumpTo(compiler.JMP, 0, top)
	p.b().MatchJump(endLabel)
	p.fe.popLoop()
}

func (p *Parser) doWhileStmt() {
	p.advance() // 'do'
	top := p.b().Here()
	endLabel := p.b().NewLabel()
	contLabel := p.b().NewLabel()

	p.fe.pushLoop(endLabel, contLabel)
	p.statement()
	p.b().MatchJump(contLabel)
	p.fe.popLoop()

	if !p.expect(token.WHILE) {
		p.b().MatchJump(endLabel)
		return
	}
	p.expect(token.LPAREN)
	cond := p.load(p.expr())
	p.expect(token.RPAREN)
	p.expectSemi()

	p.b().EmitJumpTo(compiler.JT, cond, top)
	p.b().MatchJump(endLabel)
}

func (p *Parser) breakStmt() {
	p.advance()
	if lbl, ok := p.fe.currentBreak(); ok {
		p.b().EmitJump(compiler.JMP, 0, lbl)
	} else {
		p.errorf("'break' outside loop or switch")
	}
	p.expectSemi()
}

func (p *Parser) continueStmt() {
	p.advance()
	if lbl, ok := p.fe.currentContinue(); ok {
		p.b().EmitJump(compiler.JMP, 0, lbl)
	} else {
		p.errorf("'continue' outside loop")
	}
	p.expectSemi()
}

func (p *Parser) returnStmt() {
	p.advance()
	if p.tok() == token.SEMI || p.tok() == token.RBRACE {
		p.b().EmitAN(compiler.RET, 0, 0)
	} else {
		v := p.load(p.expr())
		p.b().EmitAN(compiler.RET, v, 1)
	}
	p.expectSemi()
}

func (p *Parser) functionStmt() {
	p.advance() // 'function'
	name := p.identName()
	if name == "" {
		p.recover()
		return
	}
	params := p.paramList()
	dst := p.compileFunctionBody(name, params)
	idx, exists := p.b().LocalIndex(name)
	if !exists {
		idx = p.b().AddLocal(name)
	}
	p.b().EmitABC(compiler.MOVE, idx, dst, 0)
}

// deleteStmt compiles `delete postfix ';'`, requiring the operand to be a
// property reference (`delete obj.name`); DELPROP has no element-delete
// counterpart.
func (p *Parser) deleteStmt() {
	p.advance() // 'delete'
	target := p.postfix()
	if target.kind != opProp {
		p.errorf("delete requires a property reference")
	} else {
		p.b().EmitABC(compiler.DELPROP, target.reg, target.keyOperand, 0)
	}
	p.expectSemi()
}

// forStmt parses `for (...)`, dispatching to the for-in or classic 3-clause
// form once it's seen enough to tell them apart: both start with an
// optional `var` and a single identifier, but for-in continues with ':'
// while the classic form continues with '=', ';', or ','.
func (p *Parser) forStmt() {
	p.advance() // 'for'
	p.expect(token.LPAREN)

	isVar := p.tok() == token.VAR
	if isVar {
		p.advance()
	}

	if p.tok() == token.IDENT {
		name := p.tokVal().String
		p.advance()
		if p.tok() == token.COLON {
			p.forIn(name)
			return
		}
		p.forClassicDecl(name, isVar)
		return
	}

	if isVar {
		p.errorf("missing var declaration")
	}
	if p.tok() != token.SEMI {
		p.expr()
	}
	p.expect(token.SEMI)
	p.forRest()
}

func (p *Parser) forClassicDecl(name string, isVar bool) {
	idx, exists := p.b().LocalIndex(name)
	if !exists {
		idx = p.b().AddLocal(name)
	}
	if p.tok() == token.EQ {
		p.advance()
		v := p.load(p.assignExpr())
		p.b().EmitABC(compiler.MOVE, idx, v, 0)
	}
	for p.tok() == token.COMMA {
		p.advance()
		if !isVar {
			p.errorf("only one declaration allowed in a for-init without 'var'")
		}
		p.varDeclOne()
	}
	p.expect(token.SEMI)
	p.forRest()
}

// forRest compiles `[cond] ';' [post] ')' statement` given that the init
// clause and its trailing ';' have already been parsed. The post-expression
// is compiled into a deferred buffer so it can be spliced in after the
// loop body even though it appears before it in source: the one place
// code must run after something that is parsed after it.
func (p *Parser) forRest() {
	top := p.b().Here()
	endLabel := p.b().NewLabel()
	if p.tok() != token.SEMI {
		cond := p.load(p.expr())
		p.b().EmitJump(compiler.JF, cond, endLabel)
	}
	p.expect(token.SEMI)

	hasPost := p.tok() != token.RPAREN
	var deferredID int
	if hasPost {
		deferredID = p.b().StartDeferred()
		p.expr()
	}
	var deferredBuf []compiler.Instr
	if hasPost {
		deferredBuf = p.b().EndDeferred()
	}
	p.expect(token.RPAREN)

	contLabel := p.b().NewLabel()
	p.fe.pushLoop(endLabel, contLabel)
	p.statement()
	p.b().MatchJump(contLabel)
	if hasPost {
		p.b().EmitDeferred(deferredBuf, deferredID)
	}
	p.b().EmitJumpTo(compiler.JMP, 0, top)
	p.b().MatchJump(endLabel)
	p.fe.popLoop()
}

// forIn lowers `for ([var] name : expr) body` to the iterator/next/done
// protocol:
//
//	it = new obj.iterator(obj)
//	while (!it.done()) { name = it.value; body; it.next() }
func (p *Parser) forIn(name string) {
	idxName, exists := p.b().LocalIndex(name)
	if !exists {
		idxName = p.b().AddLocal(name)
	}
	p.expect(token.COLON)
	objReg := p.load(p.expr())
	p.expect(token.RPAREN)

	iteratorAtom := p.atomConstOperand("iterator")
	doneAtom := p.atomConstOperand("done")
	nextAtom := p.atomConstOperand("next")
	valueAtom := p.atomConstOperand("value")

	itReg := p.b().AddLocal("")
	base := p.b().Mark()
	fnReg := p.b().AllocTemp()
	thisReg := p.b().AllocTemp()
	argReg := p.b().AllocTemp()
	p.b().EmitABC(compiler.LOADPROP, fnReg, objReg, iteratorAtom)
	p.b().EmitABC(compiler.MOVE, thisReg, objReg, 0)
	p.b().EmitABC(compiler.MOVE, argReg, objReg, 0)
	p.b().EmitAN(compiler.NEW, fnReg, 1)
	p.b().EmitABC(compiler.MOVE, itReg, fnReg, 0)
	p.b().FreeTemps(base)

	top := p.b().Here()
	doneReg := p.emitMethodCall0(itReg, doneAtom)
	endLabel := p.b().NewLabel()
	p.b().EmitJump(compiler.JT, doneReg, endLabel)
	p.b().FreeTemps(doneReg)

	p.b().EmitABC(compiler.LOADPROP, idxName, itReg, valueAtom)

	contLabel := p.b().NewLabel()
	p.fe.pushLoop(endLabel, contLabel)
	p.statement()
	p.b().MatchJump(contLabel)
	p.emitMethodCall0(itReg, nextAtom)
	p.b().FreeTemps(doneReg)
	p.b().EmitJumpTo(compiler.JMP, 0, top)
	p.b().MatchJump(endLabel)
	p.fe.popLoop()
}

// switchStmt compiles `switch (expr) { case c: stmts... [default: stmts...] }`.
// Unlike the fallthrough-by-default C switch, each case implicitly breaks
// (fallthrough is not supported): a
// JMP to the switch's end is appended after every case body.
func (p *Parser) switchStmt() {
	p.advance() // 'switch'
	p.expect(token.LPAREN)
	subjReg := p.b().AllocTemp()
	v := p.load(p.expr())
	p.b().EmitABC(compiler.MOVE, subjReg, v, 0)
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)

	endLabel := p.b().NewLabel()
	p.fe.pushLoop(endLabel, nil)

	var pendingSkip *compiler.Label
	sawDefault := false
	defaultAddr := -1
	for p.tok() != token.RBRACE && p.tok() != token.EOF {
		switch p.tok() {
		case token.CASE:
			if pendingSkip != nil {
				p.b().MatchJump(pendingSkip)
				pendingSkip = nil
			}
			p.advance()
			cv := p.load(p.assignExpr())
			p.expect(token.COLON)
			resultReg := p.b().AllocTemp()
			p.b().EmitABC(compiler.CASETEST, resultReg, subjReg, cv)
			skip := p.b().NewLabel()
			p.b().EmitJump(compiler.JF, resultReg, skip)
			p.caseBody()
			p.b().EmitJump(compiler.JMP, 0, endLabel)
			pendingSkip = skip
		case token.DEFAULT:
			if sawDefault {
				p.errorf("multiple default cases not allowed")
			}
			sawDefault = true
			// The default body is compiled in place but only ever entered
			// through the jump emitted after the last case test fails: a
			// guard jump skips it during the test chain (pendingSkip is left
			// pending so a failing earlier case lands on the next test, not
			// here), and the body exits straight to the end of the switch.
			skipOver := p.b().NewLabel()
			p.b().EmitJump(compiler.JMP, 0, skipOver)
			defaultAddr = p.b().Here()
			p.advance()
			p.expect(token.COLON)
			p.caseBody()
			p.b().EmitJump(compiler.JMP, 0, endLabel)
			p.b().MatchJump(skipOver)
		default:
			p.errorf("syntax error: expected 'case' or 'default', got %#v", p.tok())
			p.recover()
		}
	}
	if pendingSkip != nil {
		p.b().MatchJump(pendingSkip)
	}
	if defaultAddr >= 0 {
		p.b().EmitJumpTo(compiler.JMP, 0, defaultAddr)
	}
	p.expect(token.RBRACE)
	p.b().MatchJump(endLabel)
	p.fe.popLoop()
}

func (p *Parser) caseBody() {
	for p.tok() != token.CASE && p.tok() != token.DEFAULT && p.tok() != token.RBRACE && p.tok() != token.EOF {
		p.statement()
	}
}

// classStmt compiles `class Name { constructor(...) {...} method(...) {...}
// field = constant; ... }` into code that, at runtime, builds a single
// MaterObject (the "class object") with one property per member: methods
// and the constructor are Closures; fields are constants. lang/machine's
// NEW handling copies the class object's constant-valued fields onto each
// freshly constructed instance and sets the instance's prototype to the
// class object, so methods resolve through MaterObject's normal
// own-property-then-proto lookup.
func (p *Parser) classStmt() {
	p.advance() // 'class'
	name := p.identName()
	if name == "" {
		p.recover()
		return
	}
	p.expect(token.LBRACE)

	classReg := p.b().AllocTemp()
	p.b().EmitABC(compiler.LOADLITO, classReg, 0, 0)

	for p.tok() != token.RBRACE && p.tok() != token.EOF {
		switch p.tok() {
		case token.CONSTRUCTOR:
			p.advance()
			params := p.paramList()
			dst := p.compileFunctionBody("constructor", params)
			p.b().EmitABC(compiler.APPENDPROP, dst, classReg, p.atomConstOperand("constructor"))
		case token.IDENT:
			memberName := p.tokVal().String
			p.advance()
			switch p.tok() {
			case token.LPAREN:
				params := p.paramList()
				dst := p.compileFunctionBody(memberName, params)
				p.b().EmitABC(compiler.APPENDPROP, dst, classReg, p.atomConstOperand(memberName))
			case token.EQ:
				p.advance()
				cv := p.constantExpr()
				p.b().EmitABC(compiler.APPENDPROP, cv, classReg, p.atomConstOperand(memberName))
				p.expectSemi()
			default:
				p.errorf("syntax error: expected '(' or '=' after class member name")
				p.recover()
			}
		default:
			p.errorf("syntax error: expected class member, got %#v", p.tok())
			p.recover()
		}
	}
	p.expect(token.RBRACE)

	idx, exists := p.b().LocalIndex(name)
	if !exists {
		idx = p.b().AddLocal(name)
	}
	p.b().EmitABC(compiler.MOVE, idx, classReg, 0)
}

// constantExpr parses a single literal constant, per the "class member
// initializer must be constant" restriction.
func (p *Parser) constantExpr() int {
	var k int
	switch p.tok() {
	case token.INT:
		k = p.b().Consts().Add(value.Int(int32(p.tokVal().Int)))
	case token.FLOAT:
		k = p.b().Consts().Add(value.Float(p.tokVal().Float))
	case token.STRING:
		k = p.b().Consts().Add(value.StringLiteral{Text: p.tokVal().String})
	default:
		p.errorf("constant required (class member initializer)")
		return p.loadConst(p.b().Consts().Add(value.Null{})).reg
	}
	p.advance()
	return p.loadConst(k).reg
}
