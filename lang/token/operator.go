package token

// Assoc is the associativity of a binary operator.
type Assoc int

const (
	LeftAssoc Assoc = iota
	RightAssoc
)

// OperatorInfo describes one binary/compound-assignment operator for the
// parser's precedence-climbing expression reader.
type OperatorInfo struct {
	Tok      Token
	Prec     int
	Assoc    Assoc
	IsAssign bool // compound assignment, e.g. += -=
}

// operatorTable is consulted by the parser to decide whether to continue
// climbing at a given minPrec, and to find the arithmetic opcode a compound
// assignment implies. The assignment family is handled separately by the
// parser (it recurses at
// prec 1, right-associative); everything here starts at `||` (6).
var operatorTable = map[Token]OperatorInfo{
	OROR:  {OROR, 6, LeftAssoc, false},
	ANDAND: {ANDAND, 7, LeftAssoc, false},
	PIPE:  {PIPE, 8, LeftAssoc, false},
	CARET: {CARET, 9, LeftAssoc, false},
	AMP:   {AMP, 10, LeftAssoc, false},
	EQEQ:  {EQEQ, 11, LeftAssoc, false},
	NOTEQ: {NOTEQ, 11, LeftAssoc, false},
	LT:    {LT, 12, LeftAssoc, false},
	GT:    {GT, 12, LeftAssoc, false},
	GE:    {GE, 12, LeftAssoc, false},
	LE:    {LE, 12, LeftAssoc, false},
	SHL:   {SHL, 13, LeftAssoc, false},
	SHR:   {SHR, 13, LeftAssoc, false},
	SAR:   {SAR, 13, LeftAssoc, false},
	PLUS:  {PLUS, 14, LeftAssoc, false},
	MINUS: {MINUS, 14, LeftAssoc, false},
	STAR:    {STAR, 15, LeftAssoc, false},
	SLASH:   {SLASH, 15, LeftAssoc, false},
	PERCENT: {PERCENT, 15, LeftAssoc, false},

	PLUS_EQ:    {PLUS, 1, RightAssoc, true},
	MINUS_EQ:   {MINUS, 1, RightAssoc, true},
	STAR_EQ:    {STAR, 1, RightAssoc, true},
	SLASH_EQ:   {SLASH, 1, RightAssoc, true},
	PERCENT_EQ: {PERCENT, 1, RightAssoc, true},
	AMP_EQ:     {AMP, 1, RightAssoc, true},
	PIPE_EQ:    {PIPE, 1, RightAssoc, true},
	CARET_EQ:   {CARET, 1, RightAssoc, true},
	SHL_EQ:     {SHL, 1, RightAssoc, true},
	SHR_EQ:     {SHR, 1, RightAssoc, true},
	SAR_EQ:     {SAR, 1, RightAssoc, true},
	EQ:         {Tok: 0, Prec: 1, Assoc: RightAssoc, IsAssign: true},
}

// LookupOperator returns the OperatorInfo for tok, and true, if tok is a
// binary or compound-assignment operator the precedence climber handles.
func LookupOperator(tok Token) (OperatorInfo, bool) {
	info, ok := operatorTable[tok]
	return info, ok
}
