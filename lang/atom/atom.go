// Package atom interns identifier and property-name strings into small
// integer handles. Atoms compare by integer equality, which lets the
// compiler and machine avoid string comparisons on the hot path for
// property lookup, global/local names, and keyword recognition.
//
// Atom values are split into two disjoint ranges: a fixed, built-in range
// of well-known names baked into the binary (see sharedAtoms below), and a
// per-program dynamic range appended as the scanner/parser discover new
// identifiers.
package atom

import "golang.org/x/exp/maps"

// Atom is a 16-bit handle into a Table's string buffer.
type Atom uint16

// NoAtom is the zero value, never a valid atomized identifier.
const NoAtom Atom = 0

// Table is a string interner. The zero Table is not usable; use NewTable.
type Table struct {
	buf  []byte         // length-prefixed strings, shared + dynamic back to back
	idx  map[string]Atom // reverse lookup, filled on every append
	base int            // number of shared atoms occupying the low range
}

// NewTable returns a Table pre-seeded with the shared, compile-time-known
// atoms (see sharedAtoms).
func NewTable() *Table {
	t := &Table{idx: make(map[string]Atom, len(sharedAtoms)+64)}
	for _, s := range sharedAtoms {
		t.append(s)
	}
	t.base = len(sharedAtoms)
	return t
}

// append adds s unconditionally, without checking for a prior entry, and
// returns its Atom.
func (t *Table) append(s string) Atom {
	if len(s) > 0x7fff {
		panic("atom: identifier too long to intern")
	}
	a := Atom(len(t.idx))
	t.buf = append(t.buf, byte(len(s)), byte(len(s)>>8))
	t.buf = append(t.buf, s...)
	t.idx[s] = a
	return a
}

// Atomize interns s, inserting it if absent, and returns its handle. Lookup
// is backed by a map; a flash-constrained build could drop the map and
// scan the string buffer linearly instead, with identical behavior.
func (t *Table) Atomize(s string) Atom {
	if a, ok := t.idx[s]; ok {
		return a
	}
	return t.append(s)
}

// Lookup returns the string denoted by a, or "" if a is not a valid handle
// in this table.
func (t *Table) Lookup(a Atom) string {
	s, _ := t.lookupAt(int(a))
	return s
}

func (t *Table) lookupAt(want int) (string, bool) {
	off := 0
	i := 0
	for off < len(t.buf) {
		n := int(t.buf[off]) | int(t.buf[off+1])<<8
		off += 2
		if i == want {
			return string(t.buf[off : off+n]), true
		}
		off += n
		i++
	}
	return "", false
}

// IsShared reports whether a falls in the built-in, compile-time-known
// range of atoms (see sharedAtoms), as opposed to a dynamic atom discovered
// while parsing a particular program.
func (t *Table) IsShared(a Atom) bool { return int(a) < t.base }

// Snapshot returns a name->Atom map of every atom currently interned, for
// debugging and disassembly output. The returned map must not be mutated.
func (t *Table) Snapshot() map[string]Atom { return maps.Clone(t.idx) }

// SharedAtom returns the Atom for one of the compile-time-known names listed
// in sharedAtoms. It panics if name was not registered as a shared atom;
// callers should only use this for names known statically, at init time.
func (t *Table) SharedAtom(name string) Atom {
	a, ok := t.idx[name]
	if !ok || int(a) >= t.base {
		panic("atom: " + name + " is not a shared atom")
	}
	return a
}

// sharedAtoms is the built-in table of well-known names, occupying the low
// numeric range of every Table. Order matters: it determines the numeric
// value of each shared Atom, which must stay stable across a build so that
// compiled bytecode referencing shared atoms remains valid.
var sharedAtoms = []string{
	"constructor", "length", "print", "printf", "println", "iterator",
	"next", "done", "value", "message", "name", "prototype", "this",
	"arguments", "currentTime", "delay", "toFloat", "toInt", "toUInt",

	// GPIO
	"setPinMode", "digitalWrite", "digitalRead", "onInterrupt",
	"PinMode", "Trigger", "GPIO",
	"Input", "Output", "InputPullup", "InputPulldown", "OutputOpenDrain",
	"None", "RisingEdge", "FallingEdge", "BothEdges", "Low", "High",

	// JSON / Base64
	"JSON", "parse", "stringify", "Base64", "encode", "decode",

	// TCP / UDP
	"TCP", "UDP", "IPAddr", "Socket",
	"Connected", "Reconnected", "Disconnected", "ReceivedData", "SentData",
}
