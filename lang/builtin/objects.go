package builtin

import (
	"github.com/cmarrin/m8rscript/lang/value"
)

// installConstructors binds the `Object` and `Array` globals: plain
// constructor functions for `new Object()`/`new Array(...)`, an
// alternative to the `{}`/`[]` literal syntax lang/compiler's LOADLITO/
// LOADLITA opcodes already provide directly.
func installConstructors(g value.HasSetAttrs, rt *Runtime) {
	_ = g.SetAttr("Object", native("Object", nil, func(_ value.Value, _ []value.Value) (value.NativeResult, error) {
		return normal(allocObject(rt), nil)
	}))
	_ = g.SetAttr("Array", native("Array", nil, func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		return normal(allocArray(rt, append([]value.Value(nil), args...)), nil)
	}))
}
