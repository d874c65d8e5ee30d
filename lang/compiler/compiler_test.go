package compiler_test

import (
	"testing"

	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrABCRoundTrip(t *testing.T) {
	i := compiler.MakeABC(compiler.ADD, 3, 300, 5)
	assert.Equal(t, compiler.ADD, i.Op())
	ra, rb, rc := i.ABC()
	assert.Equal(t, 3, ra)
	assert.Equal(t, 300, rb)
	assert.Equal(t, 5, rc)
	assert.True(t, compiler.IsConstOperand(rb))
	assert.Equal(t, 300-compiler.MaxRegister-1, compiler.ConstIndex(rb))
}

func TestInstrANRoundTripNegative(t *testing.T) {
	i := compiler.MakeAN(compiler.JMP, 0, -17)
	ra, n := i.AN()
	assert.Equal(t, 0, ra)
	assert.Equal(t, int32(-17), n)
}

func TestConstPoolDedup(t *testing.T) {
	var pool compiler.ConstPool
	a := pool.Add(value.Int(1))
	b := pool.Add(value.Int(2))
	c := pool.Add(value.Int(1))
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, pool.Len())
}

func TestBuilderEmitAndMatchJump(t *testing.T) {
	b := compiler.NewBuilder("f", 0)
	label := b.NewLabel()
	jmpAddr := b.EmitJump(compiler.JMP, 0, label)
	b.EmitOp(compiler.NOP)
	b.EmitOp(compiler.NOP)
	b.MatchJump(label)

	fn, err := b.Finish(nil)
	require.NoError(t, err)

	_, n := compiler.Instr(fn.Code[jmpAddr]).AN()
	assert.Equal(t, int32(2), n) // two NOPs between jump and target
}

func TestBuilderDeferredSplice(t *testing.T) {
	b := compiler.NewBuilder("f", 0)
	breakLabel := b.NewLabel()

	bufID := b.StartDeferred()
	b.EmitJump(compiler.JMP, 0, breakLabel) // break inside a case body
	b.EmitOp(compiler.NOP)
	buf := b.EndDeferred()

	b.EmitOp(compiler.NOP) // case-test region in main buffer
	b.EmitDeferred(buf, bufID)
	b.MatchJump(breakLabel) // end of switch

	fn, err := b.Finish(nil)
	require.NoError(t, err)
	require.Len(t, fn.Code, 3)

	// jump was spliced at index 1; target (end of switch) is index 3.
	_, n := compiler.Instr(fn.Code[1]).AN()
	assert.Equal(t, int32(1), n)
}

func TestAllocTempBumpAndFree(t *testing.T) {
	b := compiler.NewBuilder("f", 0)
	mark := b.Mark()
	r1 := b.AllocTemp()
	_ = b.AllocTemp()
	b.FreeTemps(mark)
	r3 := b.AllocTemp()
	assert.Equal(t, r1, r3)
}

func TestCodeSizeExceeded(t *testing.T) {
	b := compiler.NewBuilder("huge", 0)
	for i := 0; i < (1<<17)+1; i++ {
		b.EmitOp(compiler.NOP)
	}
	_, err := b.Finish(nil)
	require.Error(t, err)
	assert.IsType(t, compiler.CodeSizeExceededError{}, err)
}

func TestDasmProducesReadableOutput(t *testing.T) {
	b := compiler.NewBuilder("main", 0)
	k := b.Consts().Add(value.Int(42))
	b.EmitABC(compiler.LOADREFK, 0, k, 0)
	b.EmitOp(compiler.END)
	fn, err := b.Finish(nil)
	require.NoError(t, err)

	out := compiler.Dasm(fn)
	assert.Contains(t, out, "function main")
	assert.Contains(t, out, "loadrefk")
	assert.Contains(t, out, "end")
}
