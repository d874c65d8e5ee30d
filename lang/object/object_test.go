package object_test

import (
	"testing"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapAllocAndDeref(t *testing.T) {
	h := object.NewHeap(0)
	arr := object.NewArray(nil)
	handle := object.Alloc(h, arr)

	got, ok := object.Deref(h, handle)
	require.True(t, ok)
	assert.Same(t, arr, got)
}

func TestHeapCollectSweepsUnreachable(t *testing.T) {
	h := object.NewHeap(0)
	kept := object.NewArray(nil)
	keptHandle := object.Alloc(h, kept)
	_ = object.Alloc(h, object.NewArray(nil)) // unreachable

	assert.Equal(t, 2, h.Live())
	h.Collect([]object.Ref{kept})
	assert.Equal(t, 1, h.Live())

	_, ok := object.Deref(h, keptHandle)
	assert.True(t, ok)
}

func TestHeapCollectIsIdempotent(t *testing.T) {
	h := object.NewHeap(0)
	kept := object.NewArray(nil)
	object.Alloc(h, kept)

	h.Collect([]object.Ref{kept})
	live1 := h.Live()
	h.Collect([]object.Ref{kept})
	live2 := h.Live()
	assert.Equal(t, live1, live2)
}

func TestMaterObjectSetGetAttr(t *testing.T) {
	atoms := atom.NewTable()
	o := object.NewMaterObject(atoms)

	require.NoError(t, o.SetAttr("a", value.Int(1)))
	require.NoError(t, o.SetAttr("b", value.Int(2)))

	v, err := o.Attr("a")
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), v)

	assert.Equal(t, []string{"a", "b"}, o.AttrNames())
}

func TestMaterObjectDeleteAttr(t *testing.T) {
	atoms := atom.NewTable()
	o := object.NewMaterObject(atoms)
	require.NoError(t, o.SetAttr("a", value.Int(1)))
	o.DeleteAttr("a")

	v, err := o.Attr("a")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Empty(t, o.AttrNames())
}

func TestArrayIndexAndLength(t *testing.T) {
	a := object.NewArray([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	v, err := a.Attr("length")
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), v)

	require.NoError(t, a.SetAttr("length", value.Int(1)))
	v, err = a.Attr("length")
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), v)

	elem, err := a.Index(0)
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), elem)
}

func TestArraySetIndexGrows(t *testing.T) {
	a := object.NewArray(nil)
	require.NoError(t, a.SetIndex(2, value.Int(9)))
	assert.Equal(t, 3, a.Len())
	v, _ := a.Index(2)
	assert.Equal(t, value.Int(9), v)
}

func TestStringConcatProducesHeapString(t *testing.T) {
	s := object.NewString("foo")
	v, err := s.Binary(token.PLUS, value.StringLiteral{Text: "bar"}, value.Left)
	require.NoError(t, err)
	assert.Equal(t, "foobar", v.String())
}

func TestCellOpenCloseTransition(t *testing.T) {
	c := object.NewOpenCell(5)
	idx, open := c.Open()
	assert.True(t, open)
	assert.Equal(t, 5, idx)

	c.Close(value.Int(42))
	_, open = c.Open()
	assert.False(t, open)
	assert.Equal(t, value.Int(42), c.Get())
}
