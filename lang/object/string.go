package object

import (
	"github.com/cmarrin/m8rscript/lang/token"
	"github.com/cmarrin/m8rscript/lang/value"
)

// String is a heap-allocated, mutable UTF-8 string: created by
// concatenating a StringLiteral with another string at runtime, as opposed
// to value.StringLiteral which is immutable program-table text.
type String struct {
	bytes []byte

	marked bool
}

var (
	_ value.Value     = (*String)(nil)
	_ value.Ordered   = (*String)(nil)
	_ value.HasBinary = (*String)(nil)
	_ value.HasAttrs  = (*String)(nil)
	_ Ref             = (*String)(nil)
)

// NewString returns a heap String holding s.
func NewString(s string) *String { return &String{bytes: []byte(s)} }

func (s *String) String() string { return string(s.bytes) }
func (s *String) Type() string   { return "String" }

func (s *String) Cmp(y value.Value) (int, error) {
	other := stringText(y)
	switch {
	case string(s.bytes) < other:
		return -1, nil
	case string(s.bytes) > other:
		return 1, nil
	default:
		return 0, nil
	}
}

func (s *String) Binary(op token.Token, y value.Value, side value.Side) (value.Value, error) {
	if op != token.PLUS {
		return nil, nil
	}
	other := stringText(y)
	if side == value.Right {
		return NewString(other + string(s.bytes)), nil
	}
	return NewString(string(s.bytes) + other), nil
}

func stringText(v value.Value) string {
	switch vv := v.(type) {
	case value.StringLiteral:
		return vv.Text
	case *String:
		return string(vv.bytes)
	default:
		return vv.String()
	}
}

func (s *String) Attr(name string) (value.Value, error) {
	if name == "length" {
		return value.Int(len(s.bytes)), nil
	}
	return nil, nil
}

func (s *String) AttrNames() []string { return []string{"length"} }

func (s *String) gcMarked() bool     { return s.marked }
func (s *String) gcSetMarked(b bool) { s.marked = b }
func (s *String) gcMark(*Heap)       {}
