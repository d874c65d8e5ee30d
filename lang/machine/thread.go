package machine

import (
	"context"
	"sync"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
)

// statusContinue is step's internal sentinel meaning "dispatch handled the
// instruction, keep running" -- never returned across a Continue call.
const statusContinue Status = -1

// Thread is one program's execution state: a single growable value
// stack shared by every live call frame (so an open upvalue Cell can point
// at an absolute stack index regardless of which frame owns it), a
// call-frame stack, a pending event queue, and the heap/atom table the
// compiled Function was built against.
type Thread struct {
	Heap   *object.Heap
	Atoms  *atom.Table
	Global value.HasSetAttrs

	// MaxDepth caps call-frame nesting; 0 means unlimited. Exceeding it
	// reports KindStackOverflow rather than growing th.frames without
	// bound.
	MaxDepth int

	// pendingDelayMS holds the most recent delay(ms) request's duration, for
	// PendingDelayMS to report after Continue returns StatusDelay.
	pendingDelayMS int

	stack    []value.Value
	stackTop int
	frames   []*callFrame

	// evMu guards events: FireEvent is the one Thread entry point other
	// goroutines (socket read loops, GPIO interrupts, timers) may call while
	// the VM runs.
	evMu   sync.Mutex
	events []Event

	// started/failed track the lifecycle around event delivery: Continue
	// reports StatusFinished exactly once after the root frame returns and
	// the queue drains, and events fired after a runtime error are dropped.
	started  bool
	finished bool
	failed   bool

	terminateRequested bool
}

// NewThread returns a Thread ready for StartExecution, sharing heap, atoms
// and global object with whatever compiled the program it will run.
func NewThread(heap *object.Heap, atoms *atom.Table, global value.HasSetAttrs) *Thread {
	return &Thread{Heap: heap, Atoms: atoms, Global: global}
}

// StartExecution installs fn as the root closure and pushes its initial
// frame. fn's upvalues are always global-bound (a root function has no
// enclosing frame to capture a local from), so each becomes a Cell
// reading and writing a name on Global rather than a stack slot.
func (th *Thread) StartExecution(fn *object.Function) error {
	cells := make([]*object.Cell, len(fn.Upvalues))
	for i, uv := range fn.Upvalues {
		cells[i] = object.NewGlobalCell(th.Global, uv.Name)
		object.Alloc(th.Heap, cells[i])
	}
	root := object.NewClosure(fn, cells, value.Undefined{})
	object.Alloc(th.Heap, root)

	th.stack = nil
	th.stackTop = 0
	th.frames = nil
	th.started = true
	th.finished = false
	th.failed = false
	th.terminateRequested = false

	frame := &callFrame{closure: root, this: value.Undefined{}}
	th.pushInitializedFrame(frame, nil)
	return nil
}

// PendingDelayMS returns the duration, in milliseconds, the most recent
// delay(ms) call requested -- valid after Continue returns StatusDelay, for
// a host loop to sleep (or schedule a timer) before calling Continue again.
func (th *Thread) PendingDelayMS() int { return th.pendingDelayMS }

// atMaxDepth reports whether pushing one more frame would exceed MaxDepth
// (0 means unlimited).
func (th *Thread) atMaxDepth() bool {
	return th.MaxDepth > 0 && len(th.frames) >= th.MaxDepth
}

// FireEvent enqueues a callable for delivery between instructions, for a
// host completing an async operation a native call previously suspended on.
// It is safe to call from any goroutine; delivery order across
// producers is arrival order. Events fired after a runtime error are
// dropped.
func (th *Thread) FireEvent(ev Event) {
	th.evMu.Lock()
	defer th.evMu.Unlock()
	if th.failed {
		return
	}
	th.events = append(th.events, ev)
}

func (th *Thread) popEvent() (Event, bool) {
	th.evMu.Lock()
	defer th.evMu.Unlock()
	if len(th.events) == 0 {
		return Event{}, false
	}
	ev := th.events[0]
	th.events = th.events[1:]
	return ev, true
}

func (th *Thread) dropEvents() {
	th.evMu.Lock()
	th.events = nil
	th.evMu.Unlock()
}

// RequestTermination asks the next Continue call to stop and report
// StatusTerminated instead of resuming.
func (th *Thread) RequestTermination() { th.terminateRequested = true }

// gcRoots gathers every heap Ref directly reachable from live VM state --
// the value stack, live upvalue cells, the event queue, every live frame's
// closure, and the Global object -- for Heap.Collect.
func (th *Thread) gcRoots() []object.Ref {
	var roots []object.Ref
	// Global holds every top-level `var` and every builtin proto-object;
	// a global Cell's own gcMark is a no-op (it reads Global.Attr on demand
	// rather than caching a Value to mark), so Global itself must be a root
	// directly or nothing reachable only from it would survive a collection.
	if r, ok := th.Global.(object.Ref); ok {
		roots = append(roots, r)
	}
	for _, v := range th.stack[:th.stackTop] {
		if r, ok := v.(object.Ref); ok {
			roots = append(roots, r)
		}
	}
	for _, fr := range th.frames {
		roots = append(roots, fr.closure)
		for _, c := range fr.openCells {
			roots = append(roots, c)
		}
	}
	th.evMu.Lock()
	for _, ev := range th.events {
		if r, ok := ev.Callable.(object.Ref); ok {
			roots = append(roots, r)
		}
		if r, ok := ev.This.(object.Ref); ok {
			roots = append(roots, r)
		}
		for _, a := range ev.Args {
			if r, ok := a.(object.Ref); ok {
				roots = append(roots, r)
			}
		}
	}
	th.evMu.Unlock()
	return roots
}

// Continue runs the program until it finishes, errors, suspends for an
// async reason, or exhausts fuel instructions (fuel<=0 means unlimited).
// Fired events are delivered
// only while the frame stack is idle -- never interleaved into an active
// script activation -- preserving program order within an activation.
func (th *Thread) Continue(ctx context.Context, fuel int) (Status, error) {
	if !th.started {
		return StatusNotRunning, nil
	}

	for steps := 0; fuel <= 0 || steps < fuel; steps++ {
		if th.terminateRequested {
			th.unwind()
			return StatusTerminated, nil
		}
		select {
		case <-ctx.Done():
			return StatusYield, ctx.Err()
		default:
		}

		if len(th.frames) == 0 {
			ev, ok := th.popEvent()
			if !ok {
				if th.finished || th.failed {
					return StatusNotRunning, nil
				}
				th.finished = true
				return StatusFinished, nil
			}
			st, err := th.dispatchEvent(ev)
			if err != nil {
				th.fail()
				return StatusError, err
			}
			if st == StatusTerminated {
				th.unwind()
				return st, nil
			}
			if st != statusContinue {
				return st, nil
			}
			continue
		}

		cur := th.frames[len(th.frames)-1]
		code := cur.closure.Fn.Code
		if cur.pc < 0 || cur.pc >= len(code) {
			th.fail()
			return StatusError, newExecError(KindInternalError, "program counter %d out of range for %q", cur.pc, cur.closure.Fn.Name)
		}
		instr := compiler.Instr(code[cur.pc])
		cur.pc++

		status, err := th.step(cur, instr)
		if err != nil {
			th.fail()
			return StatusError, err
		}
		switch status {
		case statusContinue:
		case StatusFinished:
			// The root frame returned; loop back so the idle branch drains
			// any pending events before reporting completion.
			continue
		case StatusTerminated:
			th.unwind()
			return status, nil
		default:
			return status, nil
		}

		if th.Heap.ShouldCollect() {
			th.Heap.Collect(th.gcRoots())
		}
	}
	return StatusYield, nil
}

// fail aborts the call chain after a runtime error: frames unwind and the
// event queue is cleared, with later FireEvent calls dropped.
func (th *Thread) fail() {
	th.frames = nil
	th.evMu.Lock()
	th.failed = true
	th.events = nil
	th.evMu.Unlock()
}

// unwind discards all execution state for RequestTermination: every frame
// unwinds, open upvalues close, and pending events are dropped.
func (th *Thread) unwind() {
	for i := len(th.frames) - 1; i >= 0; i-- {
		th.frames[i].closeCells(th.stack)
	}
	th.frames = nil
	th.finished = true
	th.dropEvents()
}

// dispatchEvent invokes a fired event's callable synchronously before the
// next instruction runs. A script callable gets its own frame pushed (its
// return value is discarded -- event handlers are fire-and-forget); a
// native callable runs immediately.
func (th *Thread) dispatchEvent(ev Event) (Status, error) {
	switch c := ev.Callable.(type) {
	case *object.Closure:
		fr := &callFrame{closure: c, this: ev.This}
		th.pushInitializedFrame(fr, ev.Args)
		return statusContinue, nil
	case value.Callable:
		res, err := c.CallInternal(ev.This, ev.Args)
		if err != nil {
			return StatusError, th.wrapNativeErr(err)
		}
		return th.statusFromNative(res)
	default:
		return statusContinue, nil
	}
}

func (th *Thread) wrapNativeErr(err error) error {
	if ee, ok := err.(*ExecError); ok {
		return ee
	}
	return newExecError(KindInternalError, "%s", err)
}

// statusFromNative translates a NativeResult's suspend request, when not
// StatusNormal, into the matching machine Status; a normal result keeps the
// dispatch loop running.
func (th *Thread) statusFromNative(res value.NativeResult) (Status, error) {
	switch res.Status {
	case value.StatusNormal:
		return statusContinue, nil
	case value.StatusMsDelay:
		th.pendingDelayMS = res.DelayMS
		return StatusDelay, nil
	case value.StatusWaiting:
		return StatusWaiting, nil
	case value.StatusYield:
		return StatusYield, nil
	case value.StatusTerminate:
		return StatusTerminated, nil
	case value.StatusError:
		kind := res.ErrKind
		if kind == "" {
			kind = KindInternalError
		}
		return StatusError, newExecError(kind, "native call failed")
	default:
		return statusContinue, nil
	}
}

// ensureStack grows the shared register stack to at least n slots, filling
// new slots with Undefined.
func (th *Thread) ensureStack(n int) {
	old := len(th.stack)
	if n <= old {
		return
	}
	th.stack = append(th.stack, make([]value.Value, n-old)...)
	for i := old; i < n; i++ {
		th.stack[i] = value.Undefined{}
	}
}

func (th *Thread) getReg(fr *callFrame, i int) value.Value { return th.stack[fr.base+i] }

func (th *Thread) setReg(fr *callFrame, i int, v value.Value) { th.stack[fr.base+i] = v }

// cellGet reads through an upvalue cell: the live stack slot if still open,
// the closed snapshot (or global property) otherwise.
func (th *Thread) cellGet(c *object.Cell) value.Value {
	if idx, open := c.Open(); open {
		return th.stack[idx]
	}
	return c.Get()
}

func (th *Thread) cellSet(c *object.Cell, v value.Value) {
	if idx, open := c.Open(); open {
		th.stack[idx] = v
		return
	}
	c.Set(v)
}

// pushInitializedFrame lays out a new frame's register window at the
// current stack top (formal parameters first, in order, the rest
// Undefined), and pushes it onto the call-frame stack. args is recorded
// verbatim on the frame for arguments().
func (th *Thread) pushInitializedFrame(fr *callFrame, args []value.Value) {
	fn := fr.closure.Fn
	base := th.stackTop
	th.ensureStack(base + fn.TempRegCount)
	th.stackTop = base + fn.TempRegCount
	fr.base = base
	fr.pc = 0
	fr.actualArgs = append([]value.Value(nil), args...)

	for i := 0; i < fn.TempRegCount; i++ {
		if i < fn.FormalParamCount && i < len(args) {
			th.stack[base+i] = args[i]
		} else {
			th.stack[base+i] = value.Undefined{}
		}
	}

	th.frames = append(th.frames, fr)
}

// resolveKeyOperand reads an ABC rc-style operand that may be a register
// index or (per operand.opElem's generality) a constant-pool index.
func (th *Thread) resolveKeyOperand(cur *callFrame, r int) value.Value {
	if compiler.IsConstOperand(r) {
		return cur.closure.Fn.Consts[compiler.ConstIndex(r)]
	}
	return th.getReg(cur, r)
}

func (th *Thread) atomName(cur *callFrame, constOperand int) string {
	ac := cur.closure.Fn.Consts[compiler.ConstIndex(constOperand)].(value.AtomConst)
	return th.Atoms.Lookup(atom.Atom(ac))
}

var binOpTokens = map[compiler.Opcode]token.Token{
	compiler.OR:  token.PIPE,
	compiler.AND: token.AMP,
	compiler.XOR: token.CARET,
	compiler.SHL: token.SHL,
	compiler.SHR: token.SHR,
	compiler.SAR: token.SAR,
	compiler.ADD: token.PLUS,
	compiler.SUB: token.MINUS,
	compiler.MUL: token.STAR,
	compiler.DIV: token.SLASH,
	compiler.MOD: token.PERCENT,
}

var relOpTokens = map[compiler.Opcode]token.Token{
	compiler.EQ: token.EQEQ,
	compiler.NE: token.NOTEQ,
	compiler.LT: token.LT,
	compiler.LE: token.LE,
	compiler.GT: token.GT,
	compiler.GE: token.GE,
}

var unaryOpTokens = map[compiler.Opcode]token.Token{
	compiler.UMINUS:  token.MINUS,
	compiler.UNOT:    token.NOT,
	compiler.UNEG:    token.TILDE,
	compiler.PREINC:  token.INC,
	compiler.PREDEC:  token.DEC,
	compiler.POSTINC: token.INC,
	compiler.POSTDEC: token.DEC,
}

func boolValue(b bool) value.Value {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}
