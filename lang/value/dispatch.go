package value

import (
	"fmt"

	"github.com/cmarrin/m8rscript/lang/token"
)

// Binary dispatches a binary operator to whichever operand implements
// HasBinary, trying x first then y with the Side tag telling the receiver
// which operand it is. Short-circuit && and || never reach here; the
// compiler emits conditional-jump code for those directly.
func Binary(op token.Token, x, y Value) (Value, error) {
	if hb, ok := x.(HasBinary); ok {
		v, err := hb.Binary(op, y, Left)
		if err != nil || v != nil {
			return v, err
		}
	}
	if hb, ok := y.(HasBinary); ok {
		v, err := hb.Binary(op, x, Right)
		if err != nil || v != nil {
			return v, err
		}
	}
	return nil, fmt.Errorf("operator %s not supported between %s and %s", op, x.Type(), y.Type())
}

// Unary dispatches a unary operator to x, if it implements HasUnary.
func Unary(op token.Token, x Value) (Value, error) {
	if hu, ok := x.(HasUnary); ok {
		v, err := hu.Unary(op)
		if err != nil || v != nil {
			return v, err
		}
	}
	return nil, fmt.Errorf("unary operator %s not supported on %s", op, x.Type())
}

// Compare implements the relational and equality operators over any pair
// of operands, preferring Ordered.Cmp, falling back to HasEqual.Equals for
// EQ/NE, and falling back to Go identity equality for EQ/NE as a last
// resort (used for None/Null/Undefined and object handles without custom
// equality).
func Compare(op token.Token, x, y Value) (bool, error) {
	if ox, ok := x.(Ordered); ok {
		c, err := ox.Cmp(y)
		if err == nil {
			return compareResult(op, c)
		}
		if op != token.EQEQ && op != token.NOTEQ {
			return false, err
		}
	}
	if op == token.EQEQ || op == token.NOTEQ {
		eq, err := equals(x, y)
		if err != nil {
			return false, err
		}
		if op == token.NOTEQ {
			eq = !eq
		}
		return eq, nil
	}
	return false, fmt.Errorf("operator %s not supported between %s and %s", op, x.Type(), y.Type())
}

func equals(x, y Value) (bool, error) {
	if hx, ok := x.(HasEqual); ok {
		return hx.Equals(y)
	}
	if hy, ok := y.(HasEqual); ok {
		return hy.Equals(x)
	}
	if ox, ok := x.(Ordered); ok {
		c, err := ox.Cmp(y)
		if err == nil {
			return c == 0, nil
		}
	}
	switch x.(type) {
	case None, Null, Undefined:
		return x.Type() == y.Type(), nil
	}
	return x == y, nil
}

func compareResult(op token.Token, c int) (bool, error) {
	switch op {
	case token.LT:
		return c < 0, nil
	case token.GT:
		return c > 0, nil
	case token.LE:
		return c <= 0, nil
	case token.GE:
		return c >= 0, nil
	case token.EQEQ:
		return c == 0, nil
	case token.NOTEQ:
		return c != 0, nil
	}
	return false, fmt.Errorf("operator %s is not a comparison", op)
}
