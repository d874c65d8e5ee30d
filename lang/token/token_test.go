package token_test

import (
	"testing"

	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKeyword(t *testing.T) {
	tok, ok := token.Lookup("switch")
	require.True(t, ok)
	assert.Equal(t, token.SWITCH, tok)
	assert.True(t, tok.IsKeyword())
}

func TestLookupNonKeyword(t *testing.T) {
	_, ok := token.Lookup("notAKeyword")
	assert.False(t, ok)
}

func TestTokenStringASCII(t *testing.T) {
	assert.Equal(t, "+", token.PLUS.String())
	assert.Equal(t, ";", token.SEMI.String())
}

func TestTokenStringMulti(t *testing.T) {
	assert.Equal(t, "+=", token.PLUS_EQ.String())
	assert.Equal(t, ">>>", token.SAR.String())
}

func TestTokenGoStringQuotesPunct(t *testing.T) {
	assert.Equal(t, "'+'", token.PLUS.GoString())
	assert.Equal(t, "switch", token.SWITCH.GoString())
}

func TestIsAssignOp(t *testing.T) {
	assert.True(t, token.PLUS_EQ.IsAssignOp())
	assert.False(t, token.EQ.IsAssignOp())
	assert.False(t, token.PLUS.IsAssignOp())
}

func TestLookupOperatorPrecedence(t *testing.T) {
	info, ok := token.LookupOperator(token.STAR)
	require.True(t, ok)
	assert.Equal(t, 15, info.Prec)

	info, ok = token.LookupOperator(token.OROR)
	require.True(t, ok)
	assert.Equal(t, 6, info.Prec)
	assert.Less(t, info.Prec, mustPrec(t, token.ANDAND))
}

func mustPrec(t *testing.T, tok token.Token) int {
	t.Helper()
	info, ok := token.LookupOperator(tok)
	require.True(t, ok)
	return info.Prec
}

func TestPosLineCol(t *testing.T) {
	p := token.MakePos(12, 34)
	l, c := p.LineCol()
	assert.Equal(t, 12, l)
	assert.Equal(t, 34, c)
	assert.False(t, p.Unknown())
}

func TestPosUnknown(t *testing.T) {
	var p token.Pos
	assert.True(t, p.Unknown())
}
