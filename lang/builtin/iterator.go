package builtin

import (
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// newArrayProto builds the shared Array prototype (object.SetArrayProto):
// today its only member is `iterator`, the protocol adapter the for-in
// desugaring (`new obj.iterator(obj)`) calls to walk an Array's
// elements. The iterator object it returns comes from newIteratorFor, which
// any other value.Iterator can be passed to for the same
// `.done()`/`.next()`/`.value` adapter.
func newArrayProto(rt *Runtime) *proto {
	p := newProto(rt, "Array")
	p.set("iterator", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		arr, ok := arg(args, 0).(*object.Array)
		if !ok {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "Array.iterator: not an Array"}
		}
		return normal(newIteratorFor(rt, arr.Iterate()), nil)
	})
	return p
}

// newIteratorProto builds the script-visible `Iterator` global, an empty
// named proto-object. The iterator objects newIteratorFor returns are not
// linked to it: each carries its own `value`, `next` and `done` properties.
func newIteratorProto(rt *Runtime) *proto {
	return newProto(rt, "Iterator")
}

// newIteratorFor adapts a value.Iterator into the iterator/next/done
// object the for-in desugaring expects: `.value` is a plain
// property updated on construction and after every `.next()` call;
// `.done()`/`.next()` are methods, matching exactly what forIn's codegen
// emits (LOADPROP for `value`, a method CALL for `done`/`next`).
func newIteratorFor(rt *Runtime, it value.Iterator) *object.MaterObject {
	obj := allocObject(rt)

	var cur value.Value
	done := !it.Next(&cur)
	setValue := func() { _ = obj.SetAttr("value", nonNilValue(cur)) }
	setValue()

	_ = obj.SetAttr("next", native("next", obj, func(_ value.Value, _ []value.Value) (value.NativeResult, error) {
		if !done {
			done = !it.Next(&cur)
			setValue()
		}
		return normal(value.Undefined{}, nil)
	}))
	_ = obj.SetAttr("done", native("done", obj, func(_ value.Value, _ []value.Value) (value.NativeResult, error) {
		return normal(boolToInt(done), nil)
	}))
	return obj
}

func boolToInt(b bool) value.Int {
	if b {
		return 1
	}
	return 0
}

func nonNilValue(v value.Value) value.Value {
	if v == nil {
		return value.Undefined{}
	}
	return v
}
