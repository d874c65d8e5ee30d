package parser_test

import (
	"strings"
	"testing"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *object.Function {
	t.Helper()
	fn, err := parser.Parse([]byte(src), atom.NewTable())
	require.NoError(t, err)
	require.NotNil(t, fn)
	return fn
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	_, err := parser.Parse([]byte(src), atom.NewTable())
	require.Error(t, err)
	return err
}

func TestEmptySourceIsValidEmptyProgram(t *testing.T) {
	fn := parse(t, "")
	require.NotEmpty(t, fn.Code)
	assert.Equal(t, compiler.END, compiler.Instr(fn.Code[len(fn.Code)-1]).Op())
}

func TestBareForeverLoopWithBreakCompiles(t *testing.T) {
	parse(t, "for (;;) break;")
}

func TestDeeplyNestedIfElseCompiles(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("var x = 0;\n")
	const depth = 40
	for i := 0; i < depth; i++ {
		sb.WriteString("if (1) { ")
	}
	sb.WriteString("x = 1;")
	for i := 0; i < depth; i++ {
		sb.WriteString(" } else { x = 2; }")
	}
	parse(t, sb.String())
}

func TestMultipleDefaultCasesRejected(t *testing.T) {
	err := parseErr(t, `switch (1) { default: ; default: ; }`)
	assert.Contains(t, err.Error(), "multiple default cases not allowed")
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	err := parseErr(t, "break;")
	assert.Contains(t, err.Error(), "'break' outside loop or switch")
}

func TestContinueOutsideLoopRejected(t *testing.T) {
	err := parseErr(t, "continue;")
	assert.Contains(t, err.Error(), "'continue' outside loop")
}

func TestMissingVarDeclarationInForRejected(t *testing.T) {
	err := parseErr(t, "for (var ;;) {}")
	assert.Contains(t, err.Error(), "missing var declaration")
}

func TestClassFieldInitializerMustBeConstant(t *testing.T) {
	err := parseErr(t, "class C { f = g(); }")
	assert.Contains(t, err.Error(), "constant required")
}

func TestErrorsAreCollectedAcrossStatements(t *testing.T) {
	err := parseErr(t, "var = 1;\nvar = 2;\n")
	// more than one error survives: parsing recovered and kept going
	assert.Contains(t, err.Error(), "expected identifier")
	assert.GreaterOrEqual(t, strings.Count(err.Error(), "\n"), 1)
}

func TestRegisterOverflowRejected(t *testing.T) {
	// a single statement keeps all its temporaries live at once, so a long
	// enough operand chain exhausts the 256-register window
	src := "x = 0" + strings.Repeat(" + 1", 200) + ";"
	err := parseErr(t, src)
	assert.Contains(t, err.Error(), "too many registers")
}

func TestDuplicateVarIsIdempotent(t *testing.T) {
	fn := parse(t, "var x = 1; var x = 2;")
	count := 0
	for _, n := range fn.LocalNames {
		if n == "x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFormalParamCountWithinLocals(t *testing.T) {
	fn := parse(t, "function f(a, b) { var c = a + b; return c; }")
	for _, nested := range functionConsts(fn) {
		assert.LessOrEqual(t, nested.FormalParamCount, len(nested.LocalNames))
	}
}

// TestJumpOffsetsWithinBounds walks every compiled function (nested ones
// included) of a grab bag of control-flow-heavy programs and checks each
// jump lands inside [0, len(code)].
func TestJumpOffsetsWithinBounds(t *testing.T) {
	snippets := []string{
		"var s = 0; for (var i = 0; i < 5; ++i) { s += i; }",
		"var i = 0; do { ++i; } while (i < 3);",
		"var i = 10; while (i) { --i; if (i == 5) continue; if (i == 2) break; }",
		"var x = 2; switch (x) { default: x = 9; case 1: x = 10; break; case 2: x = 20; }",
		"var a = 1 && 0 || 2; var b = a ? 1 : 2;",
		"function mk(){ var a=0,b=1; return function(){ var t=a+b; a=b; b=t; return a; }; }",
		"var sum = 0; for (v : [1,2,3]) { sum += v; }",
	}
	for _, src := range snippets {
		fn, err := parser.Parse([]byte(src), atom.NewTable())
		require.NoError(t, err, "source: %s", src)
		checkJumps(t, src, fn)
	}
}

func checkJumps(t *testing.T, src string, fn *object.Function) {
	t.Helper()
	for pc, raw := range fn.Code {
		in := compiler.Instr(raw)
		switch in.Op() {
		case compiler.JMP, compiler.JT, compiler.JF:
			_, n := in.AN()
			dest := pc + 1 + int(n)
			assert.GreaterOrEqual(t, dest, 0, "source: %s, pc %d", src, pc)
			assert.LessOrEqual(t, dest, len(fn.Code), "source: %s, pc %d", src, pc)
		}
	}
	for _, nested := range functionConsts(fn) {
		checkJumps(t, src, nested)
	}
}

func functionConsts(fn *object.Function) []*object.Function {
	var out []*object.Function
	for _, c := range fn.Consts {
		if nf, ok := c.(*object.Function); ok {
			out = append(out, nf)
		}
	}
	return out
}

// TestUpvalueCaptureThreadsThroughIntermediateFunction checks the upvalue
// capture walk: a doubly nested reference to an outer local produces a
// parent-local descriptor in the middle function and a parent-upvalue
// descriptor in the innermost one.
func TestUpvalueCaptureThreadsThroughIntermediateFunction(t *testing.T) {
	fn := parse(t, `
		function outer() {
			var x = 1;
			return function middle() {
				return function inner() {
					return x;
				};
			};
		}
	`)

	outer := functionConsts(fn)[0]
	middle := functionConsts(outer)[0]
	inner := functionConsts(middle)[0]

	require.Len(t, middle.Upvalues, 1)
	assert.Equal(t, "x", middle.Upvalues[0].Name)
	assert.True(t, middle.Upvalues[0].FromParentLocal)

	require.Len(t, inner.Upvalues, 1)
	assert.Equal(t, "x", inner.Upvalues[0].Name)
	assert.False(t, inner.Upvalues[0].FromParentLocal)
	assert.Equal(t, 0, inner.Upvalues[0].Index)
}
