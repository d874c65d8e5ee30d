package atom_test

import (
	"testing"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableSeedsSharedAtoms(t *testing.T) {
	tbl := atom.NewTable()

	a := tbl.SharedAtom("length")
	assert.Equal(t, "length", tbl.Lookup(a))
	assert.True(t, tbl.IsShared(a))
}

func TestAtomizeIsIdempotent(t *testing.T) {
	tbl := atom.NewTable()

	a1 := tbl.Atomize("counter")
	a2 := tbl.Atomize("counter")
	require.Equal(t, a1, a2)
	assert.False(t, tbl.IsShared(a1))
	assert.Equal(t, "counter", tbl.Lookup(a1))
}

func TestAtomizeDistinctStrings(t *testing.T) {
	tbl := atom.NewTable()

	a := tbl.Atomize("foo")
	b := tbl.Atomize("bar")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "foo", tbl.Lookup(a))
	assert.Equal(t, "bar", tbl.Lookup(b))
}

func TestSharedAtomPanicsOnUnknown(t *testing.T) {
	tbl := atom.NewTable()
	assert.Panics(t, func() { tbl.SharedAtom("notAnAtom") })
}

func TestLookupUnknownAtomReturnsEmpty(t *testing.T) {
	tbl := atom.NewTable()
	assert.Equal(t, "", tbl.Lookup(atom.Atom(65000)))
}

func TestSnapshotContainsAtomizedNames(t *testing.T) {
	tbl := atom.NewTable()
	tbl.Atomize("x")
	tbl.Atomize("y")

	snap := tbl.Snapshot()
	_, ok := snap["x"]
	assert.True(t, ok)
	_, ok = snap["y"]
	assert.True(t, ok)
	_, ok = snap["length"]
	assert.True(t, ok)
}
