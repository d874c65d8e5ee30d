package compiler

import (
	"fmt"
	"strings"

	"github.com/cmarrin/m8rscript/lang/object"
)

// Dasm renders fn as human-readable pseudo-assembly: one line per
// instruction, operands resolved to register/constant-pool names where
// helpful. It is used by the `disasm` CLI command and by tests that want
// to assert on compiled output without hand-decoding packed Instr values.
func Dasm(fn *object.Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s(%d params, %d locals, %d temps)\n", fn.Name, fn.FormalParamCount, len(fn.LocalNames), fn.TempRegCount)
	if len(fn.Upvalues) > 0 {
		sb.WriteString("  upvalues:\n")
		for i, uv := range fn.Upvalues {
			kind := "parentLocal"
			if !uv.FromParentLocal {
				kind = "parentUpvalue"
			}
			fmt.Fprintf(&sb, "    %d: %s (%s %d)\n", i, uv.Name, kind, uv.Index)
		}
	}
	if len(fn.Consts) > 0 {
		sb.WriteString("  constants:\n")
		for i, c := range fn.Consts {
			fmt.Fprintf(&sb, "    %d: %s %s\n", i, c.Type(), c.String())
		}
	}
	sb.WriteString("  code:\n")
	for pc, raw := range fn.Code {
		sb.WriteString("    ")
		sb.WriteString(dasmInstr(pc, Instr(raw)))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func dasmInstr(pc int, i Instr) string {
	op := i.Op()
	switch {
	case op.zeroOperand():
		return fmt.Sprintf("%04d  %s", pc, op)
	case op.jump() || op == CALL || op == NEW || op == RET:
		ra, n := i.AN()
		return fmt.Sprintf("%04d  %s r%d, %d", pc, op, ra, n)
	default:
		ra, rb, rc := i.ABC()
		return fmt.Sprintf("%04d  %s r%d, %s, %s", pc, op, ra, operandStr(rb), operandStr(rc))
	}
}

func operandStr(r int) string {
	if IsConstOperand(r) {
		return fmt.Sprintf("k%d", ConstIndex(r))
	}
	return fmt.Sprintf("r%d", r)
}
