// Package value defines m8rscript's runtime Value type: a small, closed set
// of variants dispatched through Go interfaces rather than a C-style tagged
// union. lang/object's heap-backed types (MaterObject, Array, String,
// Function, Closure, native proto-objects) implement Value and whichever
// capability interfaces below apply to them; this package never imports
// lang/object, keeping the dependency one-directional.
package value

import "github.com/cmarrin/m8rscript/lang/token"

// Value is implemented by every value a running program can hold in a
// register, local, or property slot.
type Value interface {
	// String returns a human-readable representation, used by print/println
	// and by error messages.
	String() string
	// Type names the value's runtime type, e.g. "Int", "String", "Object".
	Type() string
}

// Side indicates whether a HasBinary receiver is the left or right operand.
type Side bool

const (
	Left  Side = false
	Right Side = true
)

// Callable is implemented by native callees of a CALL or NEW instruction:
// NativeFunction and native proto-object members. Script closures
// (lang/object's Closure) do not implement it; lang/machine dispatches them
// by type and pushes a call frame instead.
type Callable interface {
	Value
	Name() string
	// CallInternal invokes the callable with the given receiver ("this") and
	// argument list. It may return a NativeResult whose Status is not
	// StatusNormal to request VM suspension.
	CallInternal(this Value, args []Value) (NativeResult, error)
}

// Ordered is implemented by values that support relational comparison
// (< > <= >=).
type Ordered interface {
	Value
	// Cmp returns negative, zero, or positive as the receiver is less than,
	// equal to, or greater than y. Returns an error if y is not comparable
	// to the receiver.
	Cmp(y Value) (int, error)
}

// HasEqual is implemented by values with bespoke equality (e.g. structural
// rather than identity), used by EQ/NE when the operand does not implement
// Ordered.
type HasEqual interface {
	Value
	Equals(y Value) (bool, error)
}

// Iterable is implemented by values that may be the operand of a for-in
// loop via the iterator/next/done protocol the for-in desugaring emits, or
// directly by the VM's native Iterator proto-object.
type Iterable interface {
	Value
	Iterate() Iterator
}

// Iterator yields successive elements of an Iterable.
type Iterator interface {
	// Next reports whether a further element is available; if so, it is
	// written to *p and the iterator advances.
	Next(p *Value) bool
	Done()
}

// Indexable is implemented by values supporting `x[i]` read access.
type Indexable interface {
	Value
	Index(i int) (Value, error)
	Len() int
}

// HasSetIndex is implemented by values supporting `x[i] = v` write access.
type HasSetIndex interface {
	Indexable
	SetIndex(i int, v Value) error
}

// Mapping is implemented by values supporting `x[k]` lookup by arbitrary
// key value (as opposed to Indexable's integer index).
type Mapping interface {
	Value
	Get(key Value) (v Value, found bool, err error)
}

// HasSetKey is implemented by Mapping values supporting `x[k] = v`.
type HasSetKey interface {
	Mapping
	SetKey(key Value, v Value) error
}

// HasBinary is implemented by values that participate in binary operators
// other than the relational/equality ones already covered by Ordered and
// HasEqual. An implementation may decline by returning (nil, nil), in
// which case the dispatcher tries the other operand.
type HasBinary interface {
	Value
	Binary(op token.Token, y Value, side Side) (Value, error)
}

// HasUnary is implemented by values that may be the operand of a unary
// operator (- ~ ! ++ --).
type HasUnary interface {
	Value
	Unary(op token.Token) (Value, error)
}

// HasAttrs is implemented by values with named properties readable via
// `x.name`.
type HasAttrs interface {
	Value
	// Attr returns the property named name, or (nil, nil) if no such
	// property exists.
	Attr(name string) (Value, error)
	// AttrNames returns every currently defined property name, in the
	// value's natural (usually insertion) order. Callers must not mutate
	// the returned slice.
	AttrNames() []string
}

// HasSetAttrs is implemented by HasAttrs values with writable properties
// (`x.name = v`).
type HasSetAttrs interface {
	HasAttrs
	SetAttr(name string, v Value) error
}

// NoSuchAttrError is returned by Attr/SetAttr implementations that want to
// report precisely which name was missing.
type NoSuchAttrError string

func (e NoSuchAttrError) Error() string { return "no such property: " + string(e) }

// Truthy reports whether v is "truthy" for the purposes of `if`, `while`,
// `&&`/`||` short-circuiting, and the unary `!` operator: None, Null,
// Undefined, zero Int, zero Float, and the empty StringLiteral are falsy;
// everything else (including every Object handle, and an empty heap
// String from lang/object) is truthy.
func Truthy(v Value) bool {
	switch vv := v.(type) {
	case None:
		return false
	case Null:
		return false
	case Undefined:
		return false
	case Int:
		return vv != 0
	case Float:
		return vv != 0
	case StringLiteral:
		return vv.Text != ""
	default:
		return true
	}
}
