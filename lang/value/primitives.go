package value

import (
	"fmt"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/token"
)

// None is the sentinel value of a register or slot that has never been
// written. It is distinct from Null and Undefined: a native function
// call that declares 0 return values leaves its caller's target register
// holding Undefined, never None; None only ever appears in freshly
// allocated, never-assigned storage.
type None struct{}

func (None) String() string { return "none" }
func (None) Type() string   { return "None" }

// Null is the script-visible `null` sentinel.
type Null struct{}

func (Null) String() string { return "null" }
func (Null) Type() string   { return "Null" }

// Undefined is the value left in a destination register when a call
// returns zero values, and the value of a property access that finds
// nothing.
type Undefined struct{}

func (Undefined) String() string { return "undefined" }
func (Undefined) Type() string   { return "Undefined" }

// ArgumentsMarker is the Value bound to the free identifier `arguments`
// inside every function body. It carries no data itself; lang/machine
// recognizes it at a CALL site and synthesizes an Array from the calling
// frame's actual argument list instead of invoking it like an ordinary
// Callable, since the argument list is call-frame state a NativeFunction
// has no access to.
type ArgumentsMarker struct{}

func (ArgumentsMarker) String() string { return "function arguments() { [native code] }" }
func (ArgumentsMarker) Type() string   { return "ArgumentsMarker" }

// Int is a 32-bit signed integer value.
type Int int32

func (i Int) String() string { return fmt.Sprintf("%d", int32(i)) }
func (Int) Type() string     { return "Int" }

func (i Int) Cmp(y Value) (int, error) {
	yf, ok := toFloatForCompare(y)
	if !ok {
		return 0, fmt.Errorf("cannot compare Int to %s", y.Type())
	}
	xf := float64(i)
	switch {
	case xf < yf:
		return -1, nil
	case xf > yf:
		return 1, nil
	default:
		return 0, nil
	}
}

func (i Int) Binary(op token.Token, y Value, side Side) (Value, error) {
	return numericBinary(Float(i), true, op, y, side)
}

func (i Int) Unary(op token.Token) (Value, error) {
	switch op {
	case token.MINUS:
		return -i, nil
	case token.TILDE:
		return ^i, nil
	case token.NOT:
		return boolInt(!Truthy(i)), nil
	case token.INC:
		return i + 1, nil
	case token.DEC:
		return i - 1, nil
	}
	return nil, nil
}

// Float is an IEEE-754 double-precision value. The VM treats Float
// opaquely: it only ever adds/subtracts/multiplies/divides/compares
// through this type, so a fixed-point representation could be swapped in
// without touching anything above it.
type Float float64

func (f Float) String() string { return fmt.Sprintf("%g", float64(f)) }
func (Float) Type() string     { return "Float" }

func (f Float) Cmp(y Value) (int, error) {
	yf, ok := toFloatForCompare(y)
	if !ok {
		return 0, fmt.Errorf("cannot compare Float to %s", y.Type())
	}
	switch {
	case float64(f) < yf:
		return -1, nil
	case float64(f) > yf:
		return 1, nil
	default:
		return 0, nil
	}
}

func (f Float) Binary(op token.Token, y Value, side Side) (Value, error) {
	return numericBinary(f, false, op, y, side)
}

func (f Float) Unary(op token.Token) (Value, error) {
	switch op {
	case token.MINUS:
		return -f, nil
	case token.NOT:
		return boolInt(!Truthy(f)), nil
	case token.INC:
		return f + 1, nil
	case token.DEC:
		return f - 1, nil
	}
	return nil, nil
}

func toFloatForCompare(y Value) (float64, bool) {
	switch yy := y.(type) {
	case Int:
		return float64(yy), true
	case Float:
		return float64(yy), true
	}
	return 0, false
}

func boolInt(b bool) Int {
	if b {
		return 1
	}
	return 0
}

// numericBinary implements Int/Float mixed-arithmetic promotion:
// arithmetic between an Int and a Float promotes to Float, while two Ints
// give an Int (the arithmetic is done in Float and truncated back via
// maybeInt; the caller passes xIsInt so Int-Int pairs can be recognized).
// `%` and the bitwise/shift operators accept only two Ints.
func numericBinary(x Float, xIsInt bool, op token.Token, y Value, side Side) (Value, error) {
	var yv Float
	yIsInt := false
	switch yy := y.(type) {
	case Int:
		yv, yIsInt = Float(yy), true
	case Float:
		yv = yy
	default:
		return nil, nil
	}

	lhs, rhs := x, yv
	if side == Right {
		lhs, rhs = yv, x
	}
	bothInt := xIsInt && yIsInt

	switch op {
	case token.PLUS:
		return maybeInt(lhs+rhs, bothInt), nil
	case token.MINUS:
		return maybeInt(lhs-rhs, bothInt), nil
	case token.STAR:
		return maybeInt(lhs*rhs, bothInt), nil
	case token.SLASH:
		if rhs == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return maybeInt(lhs/rhs, bothInt), nil
	case token.PERCENT:
		if !bothInt {
			return nil, fmt.Errorf("%% requires integer operands")
		}
		li, ri := int32(lhs), int32(rhs)
		if ri == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return Int(li % ri), nil
	case token.AMP, token.PIPE, token.CARET, token.SHL, token.SHR, token.SAR:
		if !bothInt {
			return nil, fmt.Errorf("%s requires integer operands", op)
		}
		li, ri := int32(lhs), int32(rhs)
		switch op {
		case token.AMP:
			return Int(li & ri), nil
		case token.PIPE:
			return Int(li | ri), nil
		case token.CARET:
			return Int(li ^ ri), nil
		case token.SHL:
			return Int(li << uint32(ri)), nil
		case token.SHR:
			return Int(li >> uint32(ri)), nil
		case token.SAR:
			return Int(int32(uint32(li) >> uint32(ri))), nil
		}
	}
	return nil, nil
}

func maybeInt(f Float, bothInt bool) Value {
	if bothInt {
		return Int(int32(f))
	}
	return f
}

// StringLiteral references an entry in the owning Program's immutable
// string-literal table. Index is the table offset; Text is carried
// alongside for convenience so a
// StringLiteral can be compared/printed without a Program reference at
// hand during parsing.
type StringLiteral struct {
	Index int
	Text  string
}

func (s StringLiteral) String() string { return s.Text }
func (StringLiteral) Type() string     { return "String" }

func (s StringLiteral) Cmp(y Value) (int, error) {
	yy, ok := y.(StringLiteral)
	if !ok {
		return 0, fmt.Errorf("cannot compare String to %s", y.Type())
	}
	switch {
	case s.Text < yy.Text:
		return -1, nil
	case s.Text > yy.Text:
		return 1, nil
	default:
		return 0, nil
	}
}

// Binary implements `+` by coercing y through its own String() method when
// y isn't itself a string Value, so `"r" + 1` and `1 + "r"` concatenate
// rather than erroring. object.String.Binary applies the same fallback.
func (s StringLiteral) Binary(op token.Token, y Value, side Side) (Value, error) {
	if op != token.PLUS {
		return nil, nil
	}
	other := stringLiteralText(y)
	if side == Right {
		return StringLiteral{Text: other + s.Text}, nil
	}
	return StringLiteral{Text: s.Text + other}, nil
}

func stringLiteralText(v Value) string {
	if s, ok := v.(StringLiteral); ok {
		return s.Text
	}
	return v.String()
}

// Status is the outcome a native function requests of the VM beyond a
// plain value return.
type Status int

const (
	StatusNormal Status = iota
	StatusMsDelay
	StatusWaiting
	StatusYield
	StatusTerminate
	StatusError
)

// NativeResult is returned by Callable.CallInternal.
type NativeResult struct {
	Value   Value
	Status  Status
	DelayMS int
	ErrKind string
}

// NativeFunc is the signature of a Go function backing a NativeFunction
// Value.
type NativeFunc func(this Value, args []Value) (NativeResult, error)

// NativeFunction is a Go function pointer bound to a receiver, so a method
// plucked off a proto-object keeps its home object for a free-call `this`.
type NativeFunction struct {
	FuncName string
	Fn       NativeFunc
	Receiver Value
}

func (n NativeFunction) String() string { return "function " + n.FuncName + "() { [native code] }" }
func (NativeFunction) Type() string     { return "NativeFunction" }
func (n NativeFunction) Name() string   { return n.FuncName }

func (n NativeFunction) CallInternal(this Value, args []Value) (NativeResult, error) {
	if this == nil {
		this = n.Receiver
	}
	return n.Fn(this, args)
}

// AtomConst wraps an interned property-name atom so it can live in a
// function's constant pool (the key operand of LOADPROP/STOPROP/APPENDPROP
// and friends).
type AtomConst atom.Atom

func (a AtomConst) String() string { return fmt.Sprintf("atom#%d", atom.Atom(a)) }
func (AtomConst) Type() string     { return "Atom" }

