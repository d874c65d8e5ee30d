package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cmarrin/m8rscript/lang/token"
)

// Error is a single lexical error, carrying the source position at which it
// was detected.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrorList accumulates lexical errors across an entire scan, the way the
// parser accumulates syntax errors: a malformed token never aborts
// scanning, it is recorded and scanning continues to end-of-file.
type ErrorList []Error

// Add appends a new error at pos.
func (el *ErrorList) Add(pos token.Pos, msg string) {
	*el = append(*el, Error{Pos: pos, Msg: msg})
}

// Addf is like Add but formats msg.
func (el *ErrorList) Addf(pos token.Pos, format string, args ...any) {
	el.Add(pos, fmt.Sprintf(format, args...))
}

// Sort orders the list by line then column, for deterministic, readable
// reporting (Pos packs the column in its high bits, so raw Pos comparison
// would order column-major).
func (el ErrorList) Sort() {
	sort.Slice(el, func(i, j int) bool {
		li, ci := el[i].Pos.LineCol()
		lj, cj := el[j].Pos.LineCol()
		if li != lj {
			return li < lj
		}
		return ci < cj
	})
}

// Err returns el as an error, or nil if el is empty. The returned error's
// Unwrap() []error allows inspection with errors.Is/errors.As per-entry.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return listError(el)
}

type listError ErrorList

func (le listError) Error() string {
	var sb strings.Builder
	for i, e := range le {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}

func (le listError) Unwrap() []error {
	errs := make([]error, len(le))
	for i, e := range le {
		errs[i] = e
	}
	return errs
}
