package compiler

import (
	"fmt"

	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// maxCodeLen is the emitter's instruction-count ceiling: jump offsets are
// signed 18-bit immediates, so 2^17 instructions per function is the most
// a forward jump could ever span.
const maxCodeLen = 1 << 17

// CodeSizeExceededError is returned by Builder.Finish when an individual
// function's code grew past maxCodeLen.
type CodeSizeExceededError struct{ FuncName string }

func (e CodeSizeExceededError) Error() string {
	return fmt.Sprintf("function %q exceeds the maximum code size", e.FuncName)
}

// RegisterOverflowError is returned by Builder.Finish when a function needed
// more than MaxRegister+1 locals-plus-temporaries at any point.
type RegisterOverflowError struct{ FuncName string }

func (e RegisterOverflowError) Error() string {
	return fmt.Sprintf("function %q requires too many registers", e.FuncName)
}

// Builder accumulates one Function's code, constants, and register
// allocation state while lang/parser emits into it. Register allocation is
// a simple per-expression bump allocator: AllocTemp returns the
// next free register and bumps the high-water mark; FreeTemps drops the
// allocator cursor back down once a temporary's value has been consumed.
type Builder struct {
	name             string
	code             []Instr
	consts           ConstPool
	localNames       []string
	formalParamCount int
	upvalues         []object.UpvalueDesc

	nextReg     int  // next free register (bump allocator cursor)
	maxTemps    int  // high-water mark, informs the frame's TempRegCount
	regOverflow bool // high-water mark crossed MaxRegister+1

	labelSeq  int
	allLabels []*Label

	bufStack  []int // stack of buffer ids; top is curBufID's parent chain
	curBufID  int
	nextBufID int
	deferred  map[int][]Instr // deferred region id -> its saved code buffer, pending splice
}

// NewBuilder returns a Builder for a function named name with
// formalParamCount leading locals already declared (the parser is
// responsible for calling AddLocal for each parameter name first).
func NewBuilder(name string, formalParamCount int) *Builder {
	return &Builder{name: name, formalParamCount: formalParamCount}
}

// AddLocal declares a local variable, returning its register index.
// Duplicate `var` of the same name is idempotent, not an error; the
// parser is responsible for checking for an existing local by name before
// calling AddLocal again.
func (b *Builder) AddLocal(name string) int {
	idx := len(b.localNames)
	b.localNames = append(b.localNames, name)
	if b.nextReg <= idx {
		b.nextReg = idx + 1
	}
	b.bumpHighWater()
	return idx
}

func (b *Builder) bumpHighWater() {
	if b.nextReg > b.maxTemps {
		b.maxTemps = b.nextReg
	}
	if b.maxTemps > MaxRegister+1 {
		b.regOverflow = true
	}
}

// LocalCount returns how many locals (including formal parameters) have
// been declared so far.
func (b *Builder) LocalCount() int { return len(b.localNames) }

// LocalIndex returns the register index of local name, and true, or
// (0, false) if no such local has been declared.
func (b *Builder) LocalIndex(name string) (int, bool) {
	for i, n := range b.localNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// AllocTemp returns a fresh temporary register above every declared local
// and currently live temporary.
func (b *Builder) AllocTemp() int {
	r := b.nextReg
	b.nextReg++
	b.bumpHighWater()
	return r
}

// FreeTemps drops the bump allocator's cursor back to mark, releasing every
// temporary register allocated since mark was captured (typically via
// Mark). Locals are never released this way.
func (b *Builder) FreeTemps(mark int) {
	if mark > b.nextReg {
		return
	}
	if mark < len(b.localNames) {
		mark = len(b.localNames)
	}
	b.nextReg = mark
}

// Mark captures the current allocator cursor, for a later FreeTemps.
func (b *Builder) Mark() int { return b.nextReg }

// Consts exposes the constant pool so the parser can call Add directly
// with a value.Value.
func (b *Builder) Consts() *ConstPool { return &b.consts }

// EmitABC emits a three-operand instruction and returns its address.
func (b *Builder) EmitABC(op Opcode, ra, rb, rc int) int {
	idx := len(b.code)
	b.code = append(b.code, MakeABC(op, ra, rb, rc))
	return idx
}

// EmitAN emits a register-plus-immediate instruction and returns its
// address.
func (b *Builder) EmitAN(op Opcode, ra int, n int32) int {
	idx := len(b.code)
	b.code = append(b.code, MakeAN(op, ra, n))
	return idx
}

// EmitOp emits a zero-operand instruction and returns its address.
func (b *Builder) EmitOp(op Opcode) int {
	idx := len(b.code)
	b.code = append(b.code, MakeOp(op))
	return idx
}

// Here returns the address the next emitted instruction will occupy.
func (b *Builder) Here() int { return len(b.code) }

// NewLabel allocates a fresh, as-yet-unmatched Label.
func (b *Builder) NewLabel() *Label {
	b.labelSeq++
	l := &Label{id: b.labelSeq}
	b.allLabels = append(b.allLabels, l)
	return l
}

// EmitJump emits a forward jump (JMP/JT/JF) with a placeholder offset,
// registers it against label for later resolution by MatchJump, and
// returns the jump instruction's address.
func (b *Builder) EmitJump(op Opcode, ra int, label *Label) int {
	idx := b.EmitAN(op, ra, 0)
	label.patches = append(label.patches, patchSite{bufID: b.curBufID, idx: idx})
	return idx
}

// MatchJump resolves every patch site recorded against label to the
// current address, writing each as a signed offset relative to the
// instruction following the jump. Only patch sites belonging to the
// Builder's current buffer are resolved; patch sites still tagged with a
// deferred buffer id are resolved once that buffer is spliced back in via
// EmitDeferred.
func (b *Builder) MatchJump(label *Label) {
	target := len(b.code)
	remaining := label.patches[:0]
	for _, p := range label.patches {
		if p.bufID != b.curBufID {
			remaining = append(remaining, p)
			continue
		}
		ra, _ := b.code[p.idx].AN()
		offset := int32(target - (p.idx + 1))
		b.code[p.idx] = MakeAN(b.code[p.idx].Op(), ra, offset)
	}
	label.patches = remaining
}

// EmitJumpTo emits a jump (JMP/JT/JF) whose target address is already known
// -- a loop's backward edge to its own condition check, typically -- so the
// signed offset can be computed immediately instead of going through a
// Label/MatchJump patch.
func (b *Builder) EmitJumpTo(op Opcode, ra int, target int) int {
	idx := len(b.code)
	offset := int32(target - (idx + 1))
	b.code = append(b.code, MakeAN(op, ra, offset))
	return idx
}

// StartDeferred begins a secondary code buffer, letting the parser compile
// code ahead of where it belongs (a for loop's post-expression, parsed
// before the body but executed after it) and splice it into place later.
func (b *Builder) StartDeferred() int {
	b.nextBufID++
	id := b.nextBufID
	b.bufStack = append(b.bufStack, b.curBufID)
	if b.deferred == nil {
		b.deferred = make(map[int][]Instr)
	}
	b.deferred[b.curBufID] = b.code // stash parent's code temporarily keyed by its own id
	b.code = nil
	b.curBufID = id
	return id
}

// EndDeferred closes the most recently started deferred region and
// returns its accumulated code, restoring the parent buffer as current.
func (b *Builder) EndDeferred() []Instr {
	buf := b.code
	n := len(b.bufStack)
	parentID := b.bufStack[n-1]
	b.bufStack = b.bufStack[:n-1]
	b.code = b.deferred[parentID]
	delete(b.deferred, parentID)
	b.curBufID = parentID
	return buf
}

// EmitDeferred splices buf (as returned by EndDeferred) into the current
// buffer at the current address, and translates every still-pending patch
// site tagged with deferredID so later MatchJump calls resolve correctly
// against the spliced position.
func (b *Builder) EmitDeferred(buf []Instr, deferredID int) {
	offset := len(b.code)
	b.code = append(b.code, buf...)
	for _, l := range b.allLabels {
		for i, p := range l.patches {
			if p.bufID == deferredID {
				l.patches[i] = patchSite{bufID: b.curBufID, idx: p.idx + offset}
			}
		}
	}
}

// Finish finalizes the function, returning an immutable *object.Function.
// It errors with CodeSizeExceededError if the function grew past
// maxCodeLen instructions.
func (b *Builder) Finish(upvalues []object.UpvalueDesc) (*object.Function, error) {
	if len(b.code) > maxCodeLen {
		return nil, CodeSizeExceededError{FuncName: b.name}
	}
	if b.regOverflow {
		return nil, RegisterOverflowError{FuncName: b.name}
	}
	raw := make([]uint32, len(b.code))
	for i, ins := range b.code {
		raw[i] = uint32(ins)
	}
	return &object.Function{
		Name:             b.name,
		Code:             raw,
		Consts:           append([]value.Value(nil), b.consts.Values()...),
		LocalNames:       append([]string(nil), b.localNames...),
		FormalParamCount: b.formalParamCount,
		TempRegCount:     b.maxTemps,
		Upvalues:         upvalues,
	}, nil
}
