// Package scanner turns m8rscript source text into a token stream with one
// token of lookahead, driven through GetToken/RetireToken.
package scanner

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cmarrin/m8rscript/lang/token"
)

// TokenAndValue pairs a token code with its attached literal payload.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// Scanner tokenizes a single source buffer for the parser to consume. The
// parser drives it with GetToken (peek) and RetireToken (consume and scan
// the next one); the scanner never advances on its own.
type Scanner struct {
	src []byte
	err *ErrorList

	cur  rune // current character, -1 at EOF
	off  int  // byte offset of cur
	roff int  // byte offset just past cur

	line      int // 1-based
	lineStart int // byte offset of the start of the current line

	lookahead TokenAndValue
}

var (
	bom      = [2]byte{0xEF, 0xBB} // first two bytes of UTF-8 BOM EF BB BF
	hashBang = [2]byte{'#', '!'}
)

// New creates a Scanner over src and primes the lookahead with the first
// token. Lexical errors are appended to errs.
func New(src []byte, errs *ErrorList) *Scanner {
	s := &Scanner{err: errs, line: 1}
	if len(src) >= 3 && src[0] == bom[0] && src[1] == bom[1] && src[2] == 0xBF {
		src = src[3:]
	}
	s.src = src
	s.cur = ' '
	s.off, s.roff = 0, 0
	s.advance()
	if len(src) >= len(hashBang) && src[0] == hashBang[0] && src[1] == hashBang[1] {
		for s.cur != '\n' && s.cur != -1 {
			s.advance()
		}
	}
	s.RetireToken()
	return s
}

// GetToken returns the current lookahead token without consuming it.
func (s *Scanner) GetToken() token.Token { return s.lookahead.Token }

// GetTokenValue returns the literal payload of the current lookahead token.
func (s *Scanner) GetTokenValue() token.Value { return s.lookahead.Value }

// RetireToken discards the current lookahead and scans the next one, which
// becomes the new lookahead.
func (s *Scanner) RetireToken() {
	s.lookahead = s.scan()
}

func (s *Scanner) pos() token.Pos {
	col := s.off - s.lineStart + 1
	line := s.line
	if line > token.MaxLines {
		line = token.MaxLines
	}
	if col > token.MaxCols {
		col = token.MaxCols
	}
	return token.MakePos(line, col)
}

func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
		s.lineStart = s.roff
	}
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}
	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.pos(), "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(pos token.Pos, msg string) {
	if s.err != nil {
		s.err.Add(pos, msg)
	}
}

func (s *Scanner) errorf(pos token.Pos, format string, args ...any) {
	if s.err != nil {
		s.err.Addf(pos, format, args...)
	}
}

// advanceIf advances and returns true only if cur == r.
func (s *Scanner) advanceIf(r rune) bool {
	if s.cur == r {
		s.advance()
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDecimal(r rune) bool { return '0' <= r && r <= '9' }

func isHex(r rune) bool {
	return isDecimal(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case s.cur == ' ' || s.cur == '\t' || s.cur == '\n' || s.cur == '\r':
			s.advance()
		case s.cur == '/' && s.peek() == '/':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peek() == '*':
			s.advance()
			s.advance()
			for !(s.cur == '*' && s.peek() == '/') && s.cur != -1 {
				s.advance()
			}
			if s.cur == -1 {
				s.error(s.pos(), "unterminated block comment")
				return
			}
			s.advance()
			s.advance()
		default:
			return
		}
	}
}

func (s *Scanner) peek() rune {
	if s.roff >= len(s.src) {
		return -1
	}
	r, _ := utf8.DecodeRune(s.src[s.roff:])
	return r
}

func (s *Scanner) scan() TokenAndValue {
	s.skipWhitespaceAndComments()

	pos := s.pos()

	switch {
	case isLetter(s.cur):
		lit := s.scanIdent()
		if kw, ok := token.Lookup(lit); ok {
			return TokenAndValue{Token: kw, Value: token.Value{Raw: lit, Pos: pos}}
		}
		return TokenAndValue{Token: token.IDENT, Value: token.Value{Raw: lit, Pos: pos, String: lit}}

	case isDecimal(s.cur) || (s.cur == '.' && isDecimal(s.peek())):
		return s.scanNumber(pos)

	case s.cur == '"' || s.cur == '\'':
		return s.scanString(pos)
	}

	cur := s.cur
	s.advance()

	switch cur {
	case -1:
		return TokenAndValue{Token: token.EOF, Value: token.Value{Pos: pos}}

	case '=':
		if s.advanceIf('=') {
			return tv(token.EQEQ, pos)
		}
		return tv(token.EQ, pos)

	case '!':
		if s.advanceIf('=') {
			return tv(token.NOTEQ, pos)
		}
		return tv(token.NOT, pos)

	case '+':
		if s.advanceIf('+') {
			return tv(token.INC, pos)
		}
		if s.advanceIf('=') {
			return tv(token.PLUS_EQ, pos)
		}
		return tv(token.PLUS, pos)

	case '-':
		if s.advanceIf('-') {
			return tv(token.DEC, pos)
		}
		if s.advanceIf('=') {
			return tv(token.MINUS_EQ, pos)
		}
		return tv(token.MINUS, pos)

	case '*':
		if s.advanceIf('=') {
			return tv(token.STAR_EQ, pos)
		}
		return tv(token.STAR, pos)

	case '/':
		if s.advanceIf('=') {
			return tv(token.SLASH_EQ, pos)
		}
		return tv(token.SLASH, pos)

	case '%':
		if s.advanceIf('=') {
			return tv(token.PERCENT_EQ, pos)
		}
		return tv(token.PERCENT, pos)

	case '&':
		if s.advanceIf('&') {
			return tv(token.ANDAND, pos)
		}
		if s.advanceIf('=') {
			return tv(token.AMP_EQ, pos)
		}
		return tv(token.AMP, pos)

	case '|':
		if s.advanceIf('|') {
			return tv(token.OROR, pos)
		}
		if s.advanceIf('=') {
			return tv(token.PIPE_EQ, pos)
		}
		return tv(token.PIPE, pos)

	case '^':
		if s.advanceIf('=') {
			return tv(token.CARET_EQ, pos)
		}
		return tv(token.CARET, pos)

	case '<':
		if s.advanceIf('<') {
			if s.advanceIf('=') {
				return tv(token.SHL_EQ, pos)
			}
			return tv(token.SHL, pos)
		}
		if s.advanceIf('=') {
			return tv(token.LE, pos)
		}
		return tv(token.LT, pos)

	case '>':
		if s.advanceIf('>') {
			if s.advanceIf('>') {
				if s.advanceIf('=') {
					return tv(token.SAR_EQ, pos)
				}
				return tv(token.SAR, pos)
			}
			if s.advanceIf('=') {
				return tv(token.SHR_EQ, pos)
			}
			return tv(token.SHR, pos)
		}
		if s.advanceIf('=') {
			return tv(token.GE, pos)
		}
		return tv(token.GT, pos)

	case '~', '.', ',', ';', ':', '?', '(', ')', '[', ']', '{', '}':
		return tv(token.Token(cur), pos)

	default:
		s.errorf(pos, "illegal character %#U", cur)
		return TokenAndValue{Token: token.ILLEGAL, Value: token.Value{Raw: string(cur), Pos: pos}}
	}
}

func tv(tok token.Token, pos token.Pos) TokenAndValue {
	return TokenAndValue{Token: tok, Value: token.Value{Raw: tok.String(), Pos: pos}}
}

func (s *Scanner) scanIdent() string {
	start := s.off
	for isLetter(s.cur) || isDecimal(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// scanNumber reads an integer or float literal. 0xffffffff is accepted as
// the maximum 32-bit unsigned pattern; 0x100000000 is reported as an
// overflow.
func (s *Scanner) scanNumber(pos token.Pos) TokenAndValue {
	start := s.off
	isFloat := false
	base := 10

	if s.cur == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		s.advance()
		s.advance()
		base = 16
		for isHex(s.cur) {
			s.advance()
		}
	} else {
		for isDecimal(s.cur) {
			s.advance()
		}
		if s.cur == '.' {
			isFloat = true
			s.advance()
			for isDecimal(s.cur) {
				s.advance()
			}
		}
		if s.cur == 'e' || s.cur == 'E' {
			isFloat = true
			s.advance()
			if s.cur == '+' || s.cur == '-' {
				s.advance()
			}
			for isDecimal(s.cur) {
				s.advance()
			}
		}
	}

	lit := string(s.src[start:s.off])
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			s.error(pos, "malformed float literal")
		}
		return TokenAndValue{Token: token.FLOAT, Value: token.Value{Raw: lit, Pos: pos, Float: f}}
	}

	digits := lit
	if base == 16 {
		digits = lit[2:]
		if digits == "" {
			s.error(pos, "malformed number: empty hex literal")
		}
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		s.error(pos, "integer literal out of range")
	}
	return TokenAndValue{Token: token.INT, Value: token.Value{Raw: lit, Pos: pos, Int: int64(n)}}
}

// scanString reads a single- or double-quoted string literal, recognizing
// the escape set `\n \r \t \\ \' \" \0 \xHH \uHHHH`.
func (s *Scanner) scanString(pos token.Pos) TokenAndValue {
	start := s.off
	quote := s.cur
	s.advance()

	var sb strings.Builder
	for {
		if s.cur == -1 || s.cur == '\n' {
			s.error(pos, "unterminated string")
			break
		}
		if s.cur == quote {
			s.advance()
			break
		}
		if s.cur == '\\' {
			s.advance()
			s.scanEscape(pos, &sb)
			continue
		}
		sb.WriteRune(s.cur)
		s.advance()
	}
	// Raw keeps the source spelling (quotes and escapes included) so a
	// token stream's concatenation re-scans to the same sequence; String is
	// the decoded value.
	return TokenAndValue{Token: token.STRING, Value: token.Value{Raw: string(s.src[start:s.off]), Pos: pos, String: sb.String()}}
}

func (s *Scanner) scanEscape(pos token.Pos, sb *strings.Builder) {
	switch s.cur {
	case 'n':
		sb.WriteByte('\n')
		s.advance()
	case 'r':
		sb.WriteByte('\r')
		s.advance()
	case 't':
		sb.WriteByte('\t')
		s.advance()
	case '\\':
		sb.WriteByte('\\')
		s.advance()
	case '\'':
		sb.WriteByte('\'')
		s.advance()
	case '"':
		sb.WriteByte('"')
		s.advance()
	case '0':
		sb.WriteByte(0)
		s.advance()
	case 'x':
		s.advance()
		v := s.scanHexDigits(pos, 2)
		sb.WriteByte(byte(v))
	case 'u':
		s.advance()
		v := s.scanHexDigits(pos, 4)
		sb.WriteRune(rune(v))
	default:
		s.errorf(pos, "malformed string: unknown escape sequence")
		sb.WriteRune(s.cur)
		s.advance()
	}
}

func (s *Scanner) scanHexDigits(pos token.Pos, n int) int {
	v := 0
	for i := 0; i < n; i++ {
		if !isHex(s.cur) {
			s.error(pos, "malformed string: invalid hex escape")
			return v
		}
		d := hexVal(s.cur)
		v = v<<4 | d
		s.advance()
	}
	return v
}

func hexVal(r rune) int {
	switch {
	case '0' <= r && r <= '9':
		return int(r - '0')
	case 'a' <= r && r <= 'f':
		return int(r-'a') + 10
	default:
		return int(r-'A') + 10
	}
}
