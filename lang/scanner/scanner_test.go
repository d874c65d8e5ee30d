package scanner_test

import (
	"testing"

	"github.com/cmarrin/m8rscript/lang/scanner"
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]scanner.TokenAndValue, *scanner.ErrorList) {
	t.Helper()
	var errs scanner.ErrorList
	s := scanner.New([]byte(src), &errs)
	var out []scanner.TokenAndValue
	for {
		tv := scanner.TokenAndValue{Token: s.GetToken(), Value: s.GetTokenValue()}
		out = append(out, tv)
		if tv.Token == token.EOF {
			break
		}
		s.RetireToken()
	}
	return out, &errs
}

func TestEmptySourceIsValidEmptyProgram(t *testing.T) {
	toks, errs := scanAll(t, "")
	require.Len(t, toks, 1)
	assert.Equal(t, token.EOF, toks[0].Token)
	assert.Nil(t, errs.Err())
}

func TestKeywordsAndIdents(t *testing.T) {
	toks, errs := scanAll(t, "var x = function")
	require.Nil(t, errs.Err())
	require.Len(t, toks, 5)
	assert.Equal(t, token.VAR, toks[0].Token)
	assert.Equal(t, token.IDENT, toks[1].Token)
	assert.Equal(t, "x", toks[1].Value.String)
	assert.Equal(t, token.EQ, toks[2].Token)
	assert.Equal(t, token.FUNCTION, toks[3].Token)
	assert.Equal(t, token.EOF, toks[4].Token)
}

func TestOperatorGreedyLongestMatch(t *testing.T) {
	toks, errs := scanAll(t, ">>>= >>= >> > <<= << <=")
	require.Nil(t, errs.Err())
	want := []token.Token{token.SAR_EQ, token.SHR_EQ, token.SHR, token.GT, token.SHL_EQ, token.SHL, token.LE, token.EOF}
	for i, w := range want {
		assert.Equal(t, w, toks[i].Token, "index %d", i)
	}
}

func TestHexIntMaxAccepted(t *testing.T) {
	toks, errs := scanAll(t, "0xffffffff")
	require.Nil(t, errs.Err())
	assert.Equal(t, token.INT, toks[0].Token)
	assert.EqualValues(t, 0xffffffff, toks[0].Value.Int)
}

func TestHexIntOverflowErrors(t *testing.T) {
	_, errs := scanAll(t, "0x100000000")
	require.NotNil(t, errs.Err())
}

func TestFloatLiteral(t *testing.T) {
	toks, errs := scanAll(t, "1.5e3")
	require.Nil(t, errs.Err())
	assert.Equal(t, token.FLOAT, toks[0].Token)
	assert.Equal(t, 1500.0, toks[0].Value.Float)
}

func TestStringEscapes(t *testing.T) {
	toks, errs := scanAll(t, `"hello\nworld\t\"x\""`)
	require.Nil(t, errs.Err())
	assert.Equal(t, token.STRING, toks[0].Token)
	assert.Equal(t, "hello\nworld\t\"x\"", toks[0].Value.String)
}

func TestUnterminatedStringErrors(t *testing.T) {
	_, errs := scanAll(t, `"hello`)
	require.NotNil(t, errs.Err())
}

func TestIllegalCharacterErrors(t *testing.T) {
	_, errs := scanAll(t, "var x = `")
	require.NotNil(t, errs.Err())
}

func TestHashbangAndBOMSkipped(t *testing.T) {
	toks, errs := scanAll(t, "\xEF\xBB\xBF#!/usr/bin/env m8r\nvar x;")
	require.Nil(t, errs.Err())
	assert.Equal(t, token.VAR, toks[0].Token)
}

func TestLineComments(t *testing.T) {
	toks, errs := scanAll(t, "var x; // trailing comment\nvar y;")
	require.Nil(t, errs.Err())
	assert.Equal(t, token.VAR, toks[0].Token)
	assert.Equal(t, token.VAR, toks[3].Token)
}

func TestBlockComments(t *testing.T) {
	toks, errs := scanAll(t, "var /* inline */ x;")
	require.Nil(t, errs.Err())
	assert.Equal(t, token.VAR, toks[0].Token)
	assert.Equal(t, token.IDENT, toks[1].Token)
}

func TestRoundTripConcatenationReScans(t *testing.T) {
	src := "var s=0;for(var i=0;i<5;++i){s+=i;}print(s);"
	toks1, errs := scanAll(t, src)
	require.Nil(t, errs.Err())

	var sb []byte
	for _, tv := range toks1 {
		if tv.Token == token.EOF {
			break
		}
		sb = append(sb, tv.Value.Raw...)
		sb = append(sb, ' ')
	}
	toks2, errs := scanAll(t, string(sb))
	require.Nil(t, errs.Err())

	require.Equal(t, len(toks1), len(toks2))
	for i := range toks1 {
		assert.Equal(t, toks1[i].Token, toks2[i].Token, "index %d", i)
	}
}
