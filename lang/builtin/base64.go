package builtin

import (
	"encoding/base64"

	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/value"
)

// newBase64Proto builds the `Base64` global: {encode, decode}, thin
// wrappers over encoding/base64.StdEncoding.
func newBase64Proto(rt *Runtime) *proto {
	p := newProto(rt, "Base64")
	p.set("encode", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		text := stringArg(arg(args, 0))
		return normal(allocString(rt, base64.StdEncoding.EncodeToString([]byte(text))), nil)
	})
	p.set("decode", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		text := stringArg(arg(args, 0))
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "Base64.decode: " + err.Error()}
		}
		return normal(allocString(rt, string(raw)), nil)
	})
	return p
}
