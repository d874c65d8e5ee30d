package builtin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/value"
)

// formatSpec matches one printf conversion: %[0][width][.prec]VERB,
// where VERB is one of c s d i x X u f e E g G p, or a literal %%.
// Recognition is a single deterministic regular expression over the whole
// template rather than a hand-rolled character-by-character state machine.
var formatSpec = regexp.MustCompile(`%(0?)(\d*)(\.\d+)?([a-zA-Z%])`)

// sprintf implements the printf mini-language against format, consuming
// args in order. A specifier with no matching Go verb, or more specifiers
// than supplied arguments, is reported as the documented error kinds.
func sprintf(format string, args []value.Value) (string, error) {
	var sb strings.Builder
	argIdx := 0
	last := 0

	for _, m := range formatSpec.FindAllStringSubmatchIndex(format, -1) {
		sb.WriteString(format[last:m[0]])
		last = m[1]

		zeroPad := m[3] > m[2]
		width := format[m[4]:m[5]]
		prec := ""
		if m[6] >= 0 {
			prec = format[m[6]:m[7]]
		}
		verb := format[m[8]:m[9]]

		if verb == "%" {
			sb.WriteByte('%')
			continue
		}

		goVerb, ok := formatVerbs[verb]
		if !ok {
			return "", &machine.ExecError{Kind: machine.KindUnknownFormatSpecifier, Msg: fmt.Sprintf("unknown format specifier %%%s", verb)}
		}
		if argIdx >= len(args) {
			return "", &machine.ExecError{Kind: machine.KindBadFormatString, Msg: "too few arguments for format string"}
		}
		a := args[argIdx]
		argIdx++

		var flags strings.Builder
		flags.WriteByte('%')
		if zeroPad {
			flags.WriteByte('0')
		}
		flags.WriteString(width)
		flags.WriteString(prec)
		flags.WriteByte(goVerb)

		sb.WriteString(fmt.Sprintf(flags.String(), formatOperand(verb, a)))
	}
	sb.WriteString(format[last:])
	return sb.String(), nil
}

// formatVerbs maps the printf verb letters to the Go fmt verb that
// renders the equivalent conversion once the operand has been coerced to
// the right Go type by formatOperand.
var formatVerbs = map[string]byte{
	"c": 'c', "s": 's',
	"d": 'd', "i": 'd', "u": 'd',
	"x": 'x', "X": 'X',
	"f": 'f', "e": 'e', "E": 'E', "g": 'g', "G": 'G',
	// %p renders the operand's printable form; script Values have no
	// meaningful machine address to expose.
	"p": 's',
}

func formatOperand(verb string, v value.Value) any {
	switch verb {
	case "c":
		return rune(toInt64(v))
	case "d", "i", "u", "x", "X":
		return toInt64(v)
	case "f", "e", "E", "g", "G":
		return toFloat64(v)
	case "s":
		return v.String()
	case "p":
		return v.String()
	default:
		return v.String()
	}
}

func toInt64(v value.Value) int64 {
	switch vv := v.(type) {
	case value.Int:
		return int64(vv)
	case value.Float:
		return int64(vv)
	default:
		n, _ := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return n
	}
}

func toFloat64(v value.Value) float64 {
	switch vv := v.(type) {
	case value.Int:
		return float64(vv)
	case value.Float:
		return float64(vv)
	default:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		return f
	}
}
