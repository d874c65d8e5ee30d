package machine

import (
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// doCall implements the CALL instruction: ra holds the callee, ra+1 the
// bound `this` (Undefined for a free call), and ra+2..ra+n+1 the n
// contiguous argument registers. A script
// Closure pushes a new frame and lets Continue's loop drive it; a native
// Callable runs synchronously and may still ask the VM to suspend via its
// NativeResult.Status.
func (th *Thread) doCall(cur *callFrame, ra, n int) (Status, error) {
	callee := th.getReg(cur, ra)
	this := th.getReg(cur, ra+1)
	args := th.collectArgs(cur, ra, n)

	if _, ok := callee.(value.ArgumentsMarker); ok {
		arr := object.NewArray(append([]value.Value(nil), cur.actualArgs...))
		object.Alloc(th.Heap, arr)
		th.setReg(cur, ra, arr)
		return statusContinue, nil
	}

	switch fn := callee.(type) {
	case *object.Closure:
		if th.atMaxDepth() {
			return StatusError, newExecError(KindStackOverflow, "call stack exceeded depth %d", th.MaxDepth)
		}
		effThis := this
		if _, ok := this.(value.Undefined); ok {
			effThis = fn.This
		}
		nf := &callFrame{closure: fn, this: effThis, hasCaller: true, retReg: ra}
		th.pushInitializedFrame(nf, args)
		return statusContinue, nil
	case value.Callable:
		res, err := fn.CallInternal(this, args)
		if err != nil {
			return StatusError, th.wrapNativeErr(err)
		}
		st, serr := th.statusFromNative(res)
		if serr != nil || st != statusContinue {
			return st, serr
		}
		th.setReg(cur, ra, nonNil(res.Value))
		return statusContinue, nil
	default:
		return StatusError, newExecError(KindPropertyNotCallable, "%s is not callable", callee.Type())
	}
}

// doNew implements the NEW instruction: allocates the receiver
// object appropriate to the callee's kind, runs the constructor (if any),
// and writes the final constructed value back to ra once the constructor
// frame returns -- see doReturn's isConstruct handling for the
// substitution rule.
func (th *Thread) doNew(cur *callFrame, ra, n int) (Status, error) {
	callee := th.getReg(cur, ra)
	args := th.collectArgs(cur, ra, n)

	switch c := callee.(type) {
	case *object.MaterObject:
		if th.atMaxDepth() {
			return StatusError, newExecError(KindStackOverflow, "call stack exceeded depth %d", th.MaxDepth)
		}
		instance := object.NewMaterObject(th.Atoms)
		object.Alloc(th.Heap, instance)
		instance.SetProto(c)

		var ctor *object.Closure
		for _, name := range c.AttrNames() {
			v, _ := c.Attr(name)
			if name == "constructor" {
				if cc, ok := v.(*object.Closure); ok {
					ctor = cc
				}
				continue
			}
			switch v.(type) {
			case *object.Closure, value.NativeFunction:
				// methods stay on the class object, reached via the
				// instance's proto chain; not copied per-instance.
			default:
				_ = instance.SetAttr(name, v)
			}
		}
		if ctor != nil {
			nf := &callFrame{closure: ctor, this: instance, hasCaller: true, retReg: ra, isConstruct: true, constructResult: instance}
			th.pushInitializedFrame(nf, args)
			return statusContinue, nil
		}
		th.setReg(cur, ra, instance)
		return statusContinue, nil

	case *object.Closure:
		if th.atMaxDepth() {
			return StatusError, newExecError(KindStackOverflow, "call stack exceeded depth %d", th.MaxDepth)
		}
		instance := object.NewMaterObject(th.Atoms)
		object.Alloc(th.Heap, instance)
		nf := &callFrame{closure: c, this: instance, hasCaller: true, retReg: ra, isConstruct: true, constructResult: instance}
		th.pushInitializedFrame(nf, args)
		return statusContinue, nil

	case value.Callable:
		res, err := c.CallInternal(value.Undefined{}, args)
		if err != nil {
			return StatusError, th.wrapNativeErr(err)
		}
		st, serr := th.statusFromNative(res)
		if serr != nil || st != statusContinue {
			return st, serr
		}
		th.setReg(cur, ra, nonNil(res.Value))
		return statusContinue, nil

	default:
		return StatusError, newExecError(KindPropertyNotCallable, "%s is not a constructor", callee.Type())
	}
}

// doReturn implements RET: it closes any upvalue cells the returning frame
// opened, pops it, and -- for a construct frame -- substitutes the
// allocated instance unless the constructor itself returned an object.
func (th *Thread) doReturn(cur *callFrame, ra int, n int32) (Status, error) {
	var result value.Value = value.Undefined{}
	if n != 0 {
		result = th.getReg(cur, ra)
	}
	cur.closeCells(th.stack)
	th.frames = th.frames[:len(th.frames)-1]
	th.stackTop = cur.base

	if cur.isConstruct && !isConstructObject(result) {
		result = cur.constructResult
	}
	if !cur.hasCaller {
		return StatusFinished, nil
	}
	caller := th.frames[len(th.frames)-1]
	th.setReg(caller, cur.retReg, result)
	return statusContinue, nil
}

func (th *Thread) collectArgs(cur *callFrame, ra, n int) []value.Value {
	if n == 0 {
		return nil
	}
	args := make([]value.Value, n)
	for i := 0; i < n; i++ {
		args[i] = th.getReg(cur, ra+2+i)
	}
	return args
}

func isConstructObject(v value.Value) bool {
	switch v.(type) {
	case *object.MaterObject, *object.Array:
		return true
	default:
		return false
	}
}

func nonNil(v value.Value) value.Value {
	if v == nil {
		return value.Undefined{}
	}
	return v
}

// getAttr reads a named property off any HasAttrs value, normalizing a
// missing property to Undefined the way script-level `.` access expects,
// rather than None.
func getAttr(v value.Value, name string) (value.Value, error) {
	if sl, ok := v.(value.StringLiteral); ok {
		if name == "length" {
			return value.Int(len(sl.Text)), nil
		}
		return value.Undefined{}, nil
	}
	ha, ok := v.(value.HasAttrs)
	if !ok {
		return nil, newExecError(KindNotIndexable, "cannot read property %q of %s", name, v.Type())
	}
	r, err := ha.Attr(name)
	if err != nil {
		return nil, err
	}
	return nonNil(r), nil
}

func setAttr(v value.Value, name string, val value.Value) error {
	hs, ok := v.(value.HasSetAttrs)
	if !ok {
		return newExecError(KindNotIndexable, "cannot set property %q of %s", name, v.Type())
	}
	return hs.SetAttr(name, val)
}

// getIndex implements `x[i]`, preferring Indexable (dense arrays) and
// falling back to Mapping (associative lookup) for whatever value kind
// supports it.
func getIndex(obj, idx value.Value) (value.Value, error) {
	if ix, ok := obj.(value.Indexable); ok {
		i, ok := idx.(value.Int)
		if !ok {
			return nil, newExecError(KindInvalidArgumentValue, "array index must be an Int, got %s", idx.Type())
		}
		v, err := ix.Index(int(i))
		if err != nil {
			return nil, err
		}
		return nonNil(v), nil
	}
	if m, ok := obj.(value.Mapping); ok {
		v, found, err := m.Get(idx)
		if err != nil {
			return nil, err
		}
		if !found {
			return value.Undefined{}, nil
		}
		return v, nil
	}
	return nil, newExecError(KindNotIndexable, "%s is not indexable", obj.Type())
}

func setIndex(obj, idx, val value.Value) error {
	if ix, ok := obj.(value.HasSetIndex); ok {
		i, ok := idx.(value.Int)
		if !ok {
			return newExecError(KindInvalidArgumentValue, "array index must be an Int, got %s", idx.Type())
		}
		return ix.SetIndex(int(i), val)
	}
	if m, ok := obj.(value.HasSetKey); ok {
		return m.SetKey(idx, val)
	}
	return newExecError(KindNotIndexable, "%s is not indexable", obj.Type())
}
