package machine

import (
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
)

// step executes a single already-fetched instruction against cur, the
// currently running frame. It returns statusContinue to keep the dispatch
// loop in Continue running, or a terminal Status (plus, on StatusError, the
// ExecError that aborted the call chain).
func (th *Thread) step(cur *callFrame, instr compiler.Instr) (Status, error) {
	op := instr.Op()
	switch op {
	case compiler.NOP:
		return statusContinue, nil

	case compiler.MOVE:
		ra, rb, _ := instr.ABC()
		th.setReg(cur, ra, th.getReg(cur, rb))

	case compiler.LOADREFK:
		ra, rb, _ := instr.ABC()
		th.setReg(cur, ra, cur.closure.Fn.Consts[compiler.ConstIndex(rb)])

	case compiler.LOADLITA:
		ra, _, _ := instr.ABC()
		arr := object.NewArray(nil)
		object.Alloc(th.Heap, arr)
		th.setReg(cur, ra, arr)

	case compiler.LOADLITO:
		ra, _, _ := instr.ABC()
		obj := object.NewMaterObject(th.Atoms)
		object.Alloc(th.Heap, obj)
		th.setReg(cur, ra, obj)

	case compiler.LOADPROP:
		ra, rb, rc := instr.ABC()
		v, err := getAttr(th.getReg(cur, rb), th.atomName(cur, rc))
		if err != nil {
			return StatusError, th.wrapNativeErr(err)
		}
		th.setReg(cur, ra, v)

	case compiler.LOADELT:
		ra, rb, rc := instr.ABC()
		v, err := getIndex(th.getReg(cur, rb), th.resolveKeyOperand(cur, rc))
		if err != nil {
			return StatusError, th.wrapNativeErr(err)
		}
		th.setReg(cur, ra, v)

	case compiler.STOPROP:
		ra, rb, rc := instr.ABC()
		if err := setAttr(th.getReg(cur, rb), th.atomName(cur, rc), th.getReg(cur, ra)); err != nil {
			return StatusError, th.wrapNativeErr(err)
		}

	case compiler.STOELT:
		ra, rb, rc := instr.ABC()
		if err := setIndex(th.getReg(cur, rb), th.resolveKeyOperand(cur, rc), th.getReg(cur, ra)); err != nil {
			return StatusError, th.wrapNativeErr(err)
		}

	case compiler.APPENDELT:
		ra, rb, _ := instr.ABC()
		arr, ok := th.getReg(cur, rb).(*object.Array)
		if !ok {
			return StatusError, newExecError(KindNotIndexable, "cannot append to %s", th.getReg(cur, rb).Type())
		}
		arr.Push(th.getReg(cur, ra))

	case compiler.APPENDPROP:
		ra, rb, rc := instr.ABC()
		if err := setAttr(th.getReg(cur, rb), th.atomName(cur, rc), th.getReg(cur, ra)); err != nil {
			return StatusError, th.wrapNativeErr(err)
		}

	case compiler.LOADTRUE:
		ra, _, _ := instr.ABC()
		th.setReg(cur, ra, value.Int(1))

	case compiler.LOADFALSE:
		ra, _, _ := instr.ABC()
		th.setReg(cur, ra, value.Int(0))

	case compiler.LOADNULL:
		ra, _, _ := instr.ABC()
		th.setReg(cur, ra, value.Null{})

	case compiler.LOADTHIS:
		ra, _, _ := instr.ABC()
		th.setReg(cur, ra, cur.this)

	case compiler.LOADUP:
		ra, rb, _ := instr.ABC()
		th.setReg(cur, ra, th.cellGet(cur.closure.Upvalues[rb]))

	case compiler.STOREUP:
		ra, rb, _ := instr.ABC()
		th.cellSet(cur.closure.Upvalues[rb], th.getReg(cur, ra))

	case compiler.OR, compiler.AND, compiler.XOR, compiler.SHL, compiler.SHR, compiler.SAR,
		compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
		ra, rb, rc := instr.ABC()
		v, err := value.Binary(binOpTokens[op], th.getReg(cur, rb), th.getReg(cur, rc))
		if err != nil {
			return StatusError, newExecError(KindInvalidArgumentValue, "%s", err)
		}
		th.setReg(cur, ra, v)

	case compiler.EQ, compiler.NE, compiler.LT, compiler.LE, compiler.GT, compiler.GE:
		ra, rb, rc := instr.ABC()
		b, err := value.Compare(relOpTokens[op], th.getReg(cur, rb), th.getReg(cur, rc))
		if err != nil {
			return StatusError, newExecError(KindInvalidArgumentValue, "%s", err)
		}
		th.setReg(cur, ra, boolValue(b))

	case compiler.UMINUS, compiler.UNOT, compiler.UNEG, compiler.PREINC, compiler.PREDEC,
		compiler.POSTINC, compiler.POSTDEC:
		ra, rb, _ := instr.ABC()
		v, err := value.Unary(unaryOpTokens[op], th.getReg(cur, rb))
		if err != nil {
			return StatusError, newExecError(KindInvalidArgumentValue, "%s", err)
		}
		th.setReg(cur, ra, v)

	case compiler.JMP:
		_, n := instr.AN()
		cur.pc += int(n)

	case compiler.JT:
		ra, n := instr.AN()
		if value.Truthy(th.getReg(cur, ra)) {
			cur.pc += int(n)
		}

	case compiler.JF:
		ra, n := instr.AN()
		if !value.Truthy(th.getReg(cur, ra)) {
			cur.pc += int(n)
		}

	case compiler.CALL:
		ra, n := instr.AN()
		return th.doCall(cur, ra, int(n))

	case compiler.NEW:
		ra, n := instr.AN()
		return th.doNew(cur, ra, int(n))

	case compiler.RET:
		ra, n := instr.AN()
		return th.doReturn(cur, ra, n)

	case compiler.CASETEST:
		ra, rb, rc := instr.ABC()
		b, err := value.Compare(token.EQEQ, th.getReg(cur, rb), th.getReg(cur, rc))
		if err != nil {
			return StatusError, newExecError(KindInvalidArgumentValue, "%s", err)
		}
		th.setReg(cur, ra, boolValue(b))

	case compiler.END:
		// Every function body -- root program included -- ends with END as
		// a fallthrough terminator: reaching it is an implicit
		// `return` with no value, identical to RET with n=0. The root
		// frame has no caller, so doReturn reports StatusFinished for it;
		// any other frame just pops back to its caller with Undefined.
		return th.doReturn(cur, 0, 0)

	case compiler.CLOSURE:
		ra, rb, _ := instr.ABC()
		fn, ok := cur.closure.Fn.Consts[compiler.ConstIndex(rb)].(*object.Function)
		if !ok {
			return StatusError, newExecError(KindInternalError, "CLOSURE constant is not a Function")
		}
		cells := make([]*object.Cell, len(fn.Upvalues))
		for i, uv := range fn.Upvalues {
			if uv.FromParentLocal {
				cells[i] = cur.openCellFor(th.Heap, uv.Index)
			} else {
				cells[i] = cur.closure.Upvalues[uv.Index]
			}
		}
		clo := object.NewClosure(fn, cells, value.Undefined{})
		object.Alloc(th.Heap, clo)
		th.setReg(cur, ra, clo)

	case compiler.DELPROP:
		ra, rb, _ := instr.ABC()
		obj, ok := th.getReg(cur, ra).(*object.MaterObject)
		if !ok {
			return StatusError, newExecError(KindNotIndexable, "cannot delete a property of %s", th.getReg(cur, ra).Type())
		}
		obj.DeleteAttr(th.atomName(cur, rb))

	default:
		return StatusError, newExecError(KindInternalError, "illegal opcode %s", op)
	}
	return statusContinue, nil
}
