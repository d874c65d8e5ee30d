package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/value"
)

// installFreeFunctions binds the free functions directly on the Global
// object, exactly as a top-level `var` would be -- they are ordinary
// properties of Global, resolved the same way any other free identifier
// is (the root function's upvalue-to-global fallback).
func installFreeFunctions(g value.HasSetAttrs, rt *Runtime) {
	set := func(name string, fn value.NativeFunc) { _ = g.SetAttr(name, native(name, nil, fn)) }

	set("print", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		rt.System.Print(joinArgs(args))
		return normal(value.Undefined{}, nil)
	})
	set("println", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		rt.System.Print(joinArgs(args) + "\n")
		return normal(value.Undefined{}, nil)
	})
	set("printf", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		if len(args) == 0 {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindWrongNumberOfParams, Msg: "printf requires a format string"}
		}
		out, err := sprintf(stringArg(args[0]), args[1:])
		if err != nil {
			return value.NativeResult{}, err
		}
		rt.System.Print(out)
		return normal(value.Undefined{}, nil)
	})
	set("currentTime", func(_ value.Value, _ []value.Value) (value.NativeResult, error) {
		return normal(value.Float(rt.System.MonotonicMicros()), nil)
	})
	set("delay", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		ms := intArg(arg(args, 0))
		const maxDelayMS = 6_000_000 // delay requests beyond the cap are clamped
		if ms > maxDelayMS {
			ms = maxDelayMS
		}
		if ms < 0 {
			ms = 0
		}
		return value.NativeResult{Status: value.StatusMsDelay, DelayMS: ms}, nil
	})
	set("toFloat", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		f, err := parseFloat(stringArg(arg(args, 0)), truthyArg(arg(args, 1)))
		if err != nil {
			return value.NativeResult{}, err
		}
		return normal(value.Float(f), nil)
	})
	set("toInt", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		f, err := parseFloat(stringArg(arg(args, 0)), truthyArg(arg(args, 1)))
		if err != nil {
			return value.NativeResult{}, err
		}
		return normal(value.Int(int32(f)), nil)
	})
	set("toUInt", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		f, err := parseFloat(stringArg(arg(args, 0)), truthyArg(arg(args, 1)))
		if err != nil {
			return value.NativeResult{}, err
		}
		if f < 0 {
			f = -f
		}
		return normal(value.Int(int32(uint32(int64(f)))), nil)
	})
}

func joinArgs(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, "")
}

func stringArg(v value.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func truthyArg(v value.Value) bool {
	if v == nil {
		return false
	}
	return value.Truthy(v)
}

func intArg(v value.Value) int {
	switch vv := v.(type) {
	case value.Int:
		return int(vv)
	case value.Float:
		return int(vv)
	default:
		return 0
	}
}

// parseFloat implements toFloat/toInt/toUInt's string->number conversion.
// allowWhitespace permits (and trims) leading/trailing space, per
// the free functions' optional second argument.
func parseFloat(s string, allowWhitespace bool) (float64, error) {
	if allowWhitespace {
		s = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &machine.ExecError{Kind: machine.KindCannotConvertStringToNumber, Msg: fmt.Sprintf("cannot convert %q to a number", s)}
	}
	return f, nil
}
