package builtin

import (
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// proto is a native-backed proto-object: a MaterObject whose
// properties are NativeFunctions rather than script-assigned values,
// registered into Global under a shared atom. Wrapping object.MaterObject
// directly means a proto-object is itself a first-class HasAttrs Value
// (so `JSON.stringify` is just property access followed by a CALL, like
// any other method call) rather than a bespoke Go type per built-in.
type proto struct {
	*object.MaterObject
	name string
}

// newProto registers the backing MaterObject with rt.Heap: every heap Ref
// reachable at collection time must live in a heap slot so the sweep's
// unmark pass resets its mark bit for the next cycle.
func newProto(rt *Runtime, name string) *proto {
	p := &proto{MaterObject: allocObject(rt), name: name}
	return p
}

func (p *proto) set(name string, fn value.NativeFunc) {
	_ = p.SetAttr(name, native(p.name+"."+name, p, fn))
}
