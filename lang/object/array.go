package object

import (
	"fmt"
	"strings"

	"github.com/cmarrin/m8rscript/lang/value"
)

// Array is a dense integer-indexed Value vector with a `length` property.
// Setting length smaller than the current length truncates the backing
// slice; setting it larger pads with Undefined.
type Array struct {
	elems []value.Value

	marked bool
}

var (
	_ value.Value       = (*Array)(nil)
	_ value.HasSetIndex = (*Array)(nil)
	_ value.HasAttrs    = (*Array)(nil)
	_ value.Iterable    = (*Array)(nil)
	_ Ref               = (*Array)(nil)
)

// NewArray returns an Array initialized with elems (not copied defensively;
// callers should pass a fresh slice).
func NewArray(elems []value.Value) *Array {
	return &Array{elems: elems}
}

func (a *Array) String() string {
	parts := make([]string, len(a.elems))
	for i, e := range a.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (a *Array) Type() string { return "Array" }

func (a *Array) Len() int { return len(a.elems) }

func (a *Array) Index(i int) (value.Value, error) {
	if i < 0 || i >= len(a.elems) {
		return value.Undefined{}, nil
	}
	return a.elems[i], nil
}

func (a *Array) SetIndex(i int, v value.Value) error {
	if i < 0 {
		return fmt.Errorf("negative array index %d", i)
	}
	for i >= len(a.elems) {
		a.elems = append(a.elems, value.Undefined{})
	}
	a.elems[i] = v
	return nil
}

// Push appends to the end, backing the `append`/`push` family of Array
// methods and the APPENDELT opcode.
func (a *Array) Push(v value.Value) { a.elems = append(a.elems, v) }

// arrayProto is the shared Array prototype object lang/builtin installs at
// Global construction time (the instance -> class -> global resolution
// order, applied here since a bare Array has no per-instance class slot):
// properties not hard-coded on Array itself (chiefly `iterator`, the for-in
// protocol adapter) fall through to it.
var arrayProto value.HasAttrs

// SetArrayProto installs the shared Array prototype. Called once by
// lang/builtin when it builds the Global object.
func SetArrayProto(p value.HasAttrs) { arrayProto = p }

func (a *Array) Attr(name string) (value.Value, error) {
	if name == "length" {
		return value.Int(len(a.elems)), nil
	}
	if arrayProto != nil {
		return arrayProto.Attr(name)
	}
	return nil, nil
}

func (a *Array) AttrNames() []string { return []string{"length"} }

// SetAttr supports `arr.length = n`; any other property name is rejected.
func (a *Array) SetAttr(name string, v value.Value) error {
	if name != "length" {
		return value.NoSuchAttrError(name)
	}
	n, ok := v.(value.Int)
	if !ok || n < 0 {
		return fmt.Errorf("Array.length must be a non-negative Int")
	}
	switch {
	case int(n) < len(a.elems):
		a.elems = a.elems[:n]
	case int(n) > len(a.elems):
		for len(a.elems) < int(n) {
			a.elems = append(a.elems, value.Undefined{})
		}
	}
	return nil
}

func (a *Array) Iterate() value.Iterator { return &arrayIterator{a: a} }

type arrayIterator struct {
	a *Array
	i int
}

func (it *arrayIterator) Next(p *value.Value) bool {
	if it.i >= len(it.a.elems) {
		return false
	}
	*p = it.a.elems[it.i]
	it.i++
	return true
}

func (it *arrayIterator) Done() {}

func (a *Array) gcMarked() bool     { return a.marked }
func (a *Array) gcSetMarked(b bool) { a.marked = b }
func (a *Array) gcMark(h *Heap) {
	for _, e := range a.elems {
		markValue(h, e)
	}
}
