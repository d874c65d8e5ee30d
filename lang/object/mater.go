package object

import (
	"fmt"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/value"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// MaterObject is an ordered mapping from atom to Value: a plain script
// object literal, `new Object()`, or a class instance's own properties.
// The mapping itself is swiss-table backed; insertion order is tracked
// separately in a parallel slice since swiss tables make no
// iteration-order guarantee, and property iteration (JSON.stringify,
// for-in) must see keys in insertion order.
type MaterObject struct {
	atoms *atom.Table
	props *swiss.Map[atom.Atom, value.Value]
	order []atom.Atom
	proto value.HasAttrs // prototype chain: class object or nil

	marked bool
}

var (
	_ value.Value       = (*MaterObject)(nil)
	_ value.HasAttrs    = (*MaterObject)(nil)
	_ value.HasSetAttrs = (*MaterObject)(nil)
	_ Ref               = (*MaterObject)(nil)
)

// NewMaterObject returns an empty MaterObject backed by atoms for
// attr-name resolution.
func NewMaterObject(atoms *atom.Table) *MaterObject {
	return &MaterObject{atoms: atoms, props: swiss.NewMap[atom.Atom, value.Value](8)}
}

func (o *MaterObject) String() string { return fmt.Sprintf("[object Object@%p]", o) }
func (o *MaterObject) Type() string   { return "Object" }

func (o *MaterObject) SetProto(p value.HasAttrs) { o.proto = p }

func (o *MaterObject) Attr(name string) (value.Value, error) {
	a := o.atoms.Atomize(name)
	if v, ok := o.props.Get(a); ok {
		return v, nil
	}
	// Resolution order: own property -> class own property -> global.
	if o.proto != nil {
		return o.proto.Attr(name)
	}
	return nil, nil
}

func (o *MaterObject) SetAttr(name string, v value.Value) error {
	a := o.atoms.Atomize(name)
	if _, existed := o.props.Get(a); !existed {
		o.order = append(o.order, a)
	}
	o.props.Put(a, v)
	return nil
}

// DeleteAttr removes name, supporting the `delete` statement.
func (o *MaterObject) DeleteAttr(name string) {
	a := o.atoms.Atomize(name)
	if _, ok := o.props.Get(a); !ok {
		return
	}
	o.props.Delete(a)
	if i := slices.Index(o.order, a); i >= 0 {
		o.order = slices.Delete(o.order, i, i+1)
	}
}

func (o *MaterObject) AttrNames() []string {
	names := make([]string, 0, len(o.order))
	for _, a := range o.order {
		names = append(names, o.atoms.Lookup(a))
	}
	return names
}

func (o *MaterObject) gcMarked() bool     { return o.marked }
func (o *MaterObject) gcSetMarked(b bool) { o.marked = b }
func (o *MaterObject) gcMark(h *Heap) {
	o.props.Iter(func(_ atom.Atom, v value.Value) bool {
		markValue(h, v)
		return false
	})
	if r, ok := o.proto.(Ref); ok {
		h.markOne(r)
	}
}
