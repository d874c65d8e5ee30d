// Package parser implements m8rscript's single-pass recursive-descent
// parser: it emits bytecode directly into the current function's
// lang/compiler.Builder as it recognizes grammar productions rather than
// building an intermediate AST.
package parser

import (
	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/scanner"
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
)

// Parse compiles src into a top-level Function, using atoms as the shared
// identifier interner (the same Table the caller's Runtime and Global
// object use, so property-name atoms line up across compiled programs).
// Parse errors are accumulated rather than aborting at the first one;
// if any were recorded, Parse returns them as a single error alongside
// whatever partial Function it produced.
func Parse(src []byte, atoms *atom.Table) (*object.Function, error) {
	p := &Parser{atoms: atoms}
	p.sc = scanner.New(src, &p.errs)

	root := p.pushFunc("main", nil)
	for p.tok() != token.EOF {
		p.statement()
	}
	root.b.EmitOp(compiler.END)
	fn, err := p.popFunc()
	if err != nil {
		return nil, err
	}
	if errs := p.errs.Err(); errs != nil {
		return fn, errs
	}
	return fn, nil
}

// Parser holds parse state for one source file: the scanner, the shared
// atom table, accumulated errors, and the stack of in-progress function
// entries (innermost is p.fe).
type Parser struct {
	sc    *scanner.Scanner
	atoms *atom.Table
	errs  scanner.ErrorList
	fe    *funcState
}

func (p *Parser) tok() token.Token    { return p.sc.GetToken() }
func (p *Parser) tokVal() token.Value { return p.sc.GetTokenValue() }
func (p *Parser) pos() token.Pos      { return p.sc.GetTokenValue().Pos }
func (p *Parser) advance()            { p.sc.RetireToken() }

func (p *Parser) errorf(format string, args ...any) {
	p.errs.Addf(p.pos(), format, args...)
}

// expect consumes tok if it is current, else records a syntax error and
// does not advance (recovery happens at the statement level).
func (p *Parser) expect(tok token.Token) bool {
	if p.tok() != tok {
		p.errorf("syntax error: expected %#v, got %#v", tok, p.tok())
		return false
	}
	p.advance()
	return true
}

// recover skips tokens until a likely statement boundary (';', '}', or
// EOF), so one bad construct doesn't cascade into errors for everything
// after it.
func (p *Parser) recover() {
	for {
		switch p.tok() {
		case token.SEMI:
			p.advance()
			return
		case token.RBRACE, token.EOF:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) b() *compiler.Builder { return p.fe.b }

// block parses `'{' { statement } '}'`.
func (p *Parser) block() {
	if !p.expect(token.LBRACE) {
		return
	}
	for p.tok() != token.RBRACE && p.tok() != token.EOF {
		p.statement()
	}
	p.expect(token.RBRACE)
}

// expectSemi consumes a trailing ';': a missing
// semicolon is a recorded error, not a fatal one, and parsing continues from
// wherever recover() lands.
func (p *Parser) expectSemi() {
	if !p.expect(token.SEMI) {
		p.recover()
	}
}

// identName consumes an IDENT token and returns its text, or records a
// syntax error and returns "".
func (p *Parser) identName() string {
	if p.tok() != token.IDENT {
		p.errorf("syntax error: expected identifier, got %#v", p.tok())
		return ""
	}
	name := p.tokVal().String
	p.advance()
	return name
}

// atomConstOperand interns name and returns its ABC const-pool operand, for
// LOADPROP/STOPROP/APPENDPROP/DELPROP's key field.
func (p *Parser) atomConstOperand(name string) int {
	a := p.atoms.Atomize(name)
	return p.b().Consts().Add(value.AtomConst(a))
}

// resolveIdent compiles a bare identifier reference into an operand: a
// local of the current function, else a captured upvalue (which, at the
// root function, bottoms out in a global-binding Cell; see scope.go's
// ensureUpvalue and lang/machine's closure-instantiation logic).
func (p *Parser) resolveIdent(name string) operand {
	if idx, ok := p.b().LocalIndex(name); ok {
		return operand{kind: opLocal, reg: idx}
	}
	idx := p.fe.ensureUpvalue(name)
	return operand{kind: opUpvalue, upvalIdx: idx}
}
