package builtin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/value"
)

// newJSONProto builds the `JSON` global: {parse, stringify}. Both are
// hand-written against m8rscript Values rather than driven through
// encoding/json's reflection (the VM's Value type has no struct shape for
// reflection to walk) -- but parse still rides
// encoding/json.Decoder's token stream to get a standards-compliant
// scanner for free, and stringify still leans on strconv/json's string
// quoting, rather than a hand-rolled one.
func newJSONProto(rt *Runtime) *proto {
	p := newProto(rt, "JSON")
	p.set("parse", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		dec := json.NewDecoder(strings.NewReader(stringArg(arg(args, 0))))
		dec.UseNumber()
		v, err := decodeJSONValue(rt, dec)
		if err != nil {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "JSON.parse: " + err.Error()}
		}
		return normal(v, nil)
	})
	p.set("stringify", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		var sb strings.Builder
		if err := encodeJSONValue(&sb, arg(args, 0)); err != nil {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "JSON.stringify: " + err.Error()}
		}
		return normal(allocString(rt, sb.String()), nil)
	})
	return p
}

// decodeJSONValue reads one complete JSON value from dec, building the
// MaterObject/Array/String/Int/Float/Null tree JSON.parse returns.
// Decoding token-by-token, rather than Unmarshal-ing into map[string]any,
// is what lets object members come back in source order (MaterObject
// preserves insertion order; a Go map would not).
func decodeJSONValue(rt *Runtime, dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := allocObject(rt)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				v, err := decodeJSONValue(rt, dec)
				if err != nil {
					return nil, err
				}
				_ = obj.SetAttr(key, v)
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := allocArray(rt, nil)
			for dec.More() {
				v, err := decodeJSONValue(rt, dec)
				if err != nil {
					return nil, err
				}
				arr.Push(v)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected JSON delimiter %v", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil && fitsInt32(i) {
			return value.Int(int32(i)), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return value.Float(f), nil
	case string:
		return allocString(rt, t), nil
	case bool:
		if t {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case nil:
		return value.Null{}, nil
	default:
		return nil, fmt.Errorf("unsupported JSON token %v", t)
	}
}

func fitsInt32(i int64) bool { return i >= -(1<<31) && i < (1<<31) }

// encodeJSONValue implements JSON.stringify over the subset of Values it
// covers: integers, floats, strings, arrays, and objects with string
// keys.
func encodeJSONValue(sb *strings.Builder, v value.Value) error {
	switch vv := v.(type) {
	case nil, value.Null, value.Undefined, value.None:
		sb.WriteString("null")
	case value.Int:
		sb.WriteString(strconv.FormatInt(int64(vv), 10))
	case value.Float:
		sb.WriteString(strconv.FormatFloat(float64(vv), 'g', -1, 64))
	case value.StringLiteral:
		return encodeJSONString(sb, vv.Text)
	case *object.String:
		return encodeJSONString(sb, vv.String())
	case *object.Array:
		sb.WriteByte('[')
		for i := 0; i < vv.Len(); i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			e, _ := vv.Index(i)
			if err := encodeJSONValue(sb, e); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case *object.MaterObject:
		sb.WriteByte('{')
		for i, name := range vv.AttrNames() {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := encodeJSONString(sb, name); err != nil {
				return err
			}
			sb.WriteByte(':')
			a, err := vv.Attr(name)
			if err != nil {
				return err
			}
			if err := encodeJSONValue(sb, a); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		return fmt.Errorf("cannot stringify a %s", v.Type())
	}
	return nil
}

func encodeJSONString(sb *strings.Builder, s string) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sb.Write(raw)
	return nil
}
