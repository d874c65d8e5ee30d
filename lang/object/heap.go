// Package object implements m8rscript's heap: the fixed-slab allocator with
// typed handles, and the concrete heap-allocated types —
// MaterObject, Array, String, Function, Closure, and native proto-objects —
// that implement lang/value's Value and capability interfaces.
package object

import "github.com/cmarrin/m8rscript/lang/value"

// Ref is implemented by every heap-allocated type so a Heap can perform
// mark-and-sweep generically over mixed object kinds sharing one arena,
// without knowing their concrete type.
type Ref interface {
	value.Value
	gcMarked() bool
	gcSetMarked(bool)
	// gcMark marks every Value this object directly holds (array elements,
	// property values, captured upvalues, ...) as live.
	gcMark(h *Heap)
}

// Handle is a generation-checked reference into a Heap: dereferencing a
// handle whose slot was swept and reused is caught by the generation check
// instead of silently reading a recycled object.
type Handle[T Ref] struct {
	id  uint32
	gen uint32
}

// IsZero reports whether h is the zero Handle, never returned by Alloc.
func (h Handle[T]) IsZero() bool { return h.gen == 0 }

type slot struct {
	obj  Ref
	gen  uint32
	live bool
}

// Heap owns every MaterObject, Array, String, Function, and Closure
// allocated at runtime, across a single growable slice with a freelist,
// grown on demand rather than fixed at
// a compile-time cap, since the host build targets a workstation rather
// than flash-constrained firmware.
type Heap struct {
	slots        []slot
	freeList     []uint32
	allocSinceGC int
	gcHighWater  int
}

// NewHeap returns a Heap that triggers a collection once allocSinceGC
// reaches gcHighWater (<=0 selects a default).
func NewHeap(gcHighWater int) *Heap {
	if gcHighWater <= 0 {
		gcHighWater = 4096
	}
	return &Heap{gcHighWater: gcHighWater}
}

// Alloc allocates obj and returns a Handle to it.
func Alloc[T Ref](h *Heap, obj T) Handle[T] {
	var id, gen uint32
	if n := len(h.freeList); n > 0 {
		id = h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		gen = h.slots[id].gen + 1
		h.slots[id] = slot{obj: obj, gen: gen, live: true}
	} else {
		id = uint32(len(h.slots))
		gen = 1
		h.slots = append(h.slots, slot{obj: obj, gen: gen, live: true})
	}
	h.allocSinceGC++
	return Handle[T]{id: id, gen: gen}
}

// Deref resolves handle to its live object, or (zero, false) if the handle
// has been collected (use-after-free, caught by the generation check).
func Deref[T Ref](h *Heap, handle Handle[T]) (T, bool) {
	var zero T
	if int(handle.id) >= len(h.slots) {
		return zero, false
	}
	s := h.slots[handle.id]
	if !s.live || s.gen != handle.gen {
		return zero, false
	}
	t, ok := s.obj.(T)
	return t, ok
}

// ShouldCollect reports whether allocation pressure since the last sweep
// has reached the configured high-water mark; the host may also request a
// collection explicitly between slices.
func (h *Heap) ShouldCollect() bool { return h.allocSinceGC >= h.gcHighWater }

// Live reports how many slots are currently occupied, for diagnostics and
// tests.
func (h *Heap) Live() int {
	n := 0
	for _, s := range h.slots {
		if s.live {
			n++
		}
	}
	return n
}

// Collect runs a mark-and-sweep pass rooted at roots: the value stack, live
// upvalue cells, the event queue, and the program's root function.
// Collection never runs mid-instruction; lang/machine calls this only at
// instruction boundaries.
func (h *Heap) Collect(roots []Ref) {
	for i := range h.slots {
		if h.slots[i].live {
			h.slots[i].obj.gcSetMarked(false)
		}
	}
	for _, r := range roots {
		h.markOne(r)
	}
	for i := range h.slots {
		if h.slots[i].live && !h.slots[i].obj.gcMarked() {
			h.slots[i] = slot{gen: h.slots[i].gen}
			h.freeList = append(h.freeList, uint32(i))
		}
	}
	h.allocSinceGC = 0
}

func (h *Heap) markOne(r Ref) {
	if r == nil || r.gcMarked() {
		return
	}
	r.gcSetMarked(true)
	r.gcMark(h)
}

// markValue marks v if it refers to a heap object (anything implementing
// Ref); primitives are no-ops.
func markValue(h *Heap, v value.Value) {
	if r, ok := v.(Ref); ok {
		h.markOne(r)
	}
}
