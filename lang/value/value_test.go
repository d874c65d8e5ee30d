package value_test

import (
	"testing"

	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	assert.False(t, value.Truthy(value.None{}))
	assert.False(t, value.Truthy(value.Null{}))
	assert.False(t, value.Truthy(value.Undefined{}))
	assert.False(t, value.Truthy(value.Int(0)))
	assert.True(t, value.Truthy(value.Int(1)))
	assert.False(t, value.Truthy(value.StringLiteral{Text: ""}))
	assert.True(t, value.Truthy(value.StringLiteral{Text: "x"}))
}

func TestIntArithmeticStaysInt(t *testing.T) {
	v, err := value.Binary(token.PLUS, value.Int(2), value.Int(3))
	require.NoError(t, err)
	assert.Equal(t, value.Int(5), v)
}

func TestIntFloatPromotesToFloat(t *testing.T) {
	v, err := value.Binary(token.PLUS, value.Int(2), value.Float(0.5))
	require.NoError(t, err)
	assert.Equal(t, value.Float(2.5), v)
}

func TestDivisionByZeroErrors(t *testing.T) {
	_, err := value.Binary(token.SLASH, value.Int(1), value.Int(0))
	require.Error(t, err)
}

func TestModRequiresInt(t *testing.T) {
	_, err := value.Binary(token.PERCENT, value.Float(1.5), value.Int(1))
	require.Error(t, err)
}

func TestStringConcat(t *testing.T) {
	v, err := value.Binary(token.PLUS, value.StringLiteral{Text: "a"}, value.StringLiteral{Text: "b"})
	require.NoError(t, err)
	assert.Equal(t, "ab", v.String())
}

func TestCompareInts(t *testing.T) {
	lt, err := value.Compare(token.LT, value.Int(1), value.Int(2))
	require.NoError(t, err)
	assert.True(t, lt)

	eq, err := value.Compare(token.EQEQ, value.Int(2), value.Int(2))
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestUnaryMinusAndNot(t *testing.T) {
	v, err := value.Unary(token.MINUS, value.Int(5))
	require.NoError(t, err)
	assert.Equal(t, value.Int(-5), v)

	v, err = value.Unary(token.NOT, value.Int(0))
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), v)
}

func TestNativeFunctionCallInternal(t *testing.T) {
	called := false
	nf := value.NativeFunction{
		FuncName: "test",
		Fn: func(this value.Value, args []value.Value) (value.NativeResult, error) {
			called = true
			return value.NativeResult{Value: value.Int(42)}, nil
		},
	}
	res, err := nf.CallInternal(value.Undefined{}, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, value.Int(42), res.Value)
}
