package loader

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/csvm/workbook"
)

var (
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// expand evaluates the $(...) expressions of a cell. A cell that is a
// single expression takes the type of its result; otherwise each result is
// spliced into the text.
func (ld *Loader) expand(text string, column, row int) (v workbook.Value, err error) {
	loc := reExpression.FindStringIndex(text)
	if loc == nil {
		v = Cast(text)
		return
	}

	if loc[0] == 0 && loc[1] == len(text) {
		return ld.eval(text[2:len(text)-1], column, row)
	}

	text = reExpression.ReplaceAllStringFunc(text, func(str string) string {
		value, _err := ld.eval(str[2:len(str)-1], column, row)
		if _err != nil {
			err = _err
		}
		return value.String()
	})
	if err != nil {
		return
	}

	v = Cast(text)
	return
}

// eval runs one expression with the defines, ROW and COLUMN predeclared.
func (ld *Loader) eval(expr string, column, row int) (v workbook.Value, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrExpression, err)
		}
	}()

	thread := starlark.Thread{Name: "cell"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range ld.defines() {
		pred[key] = toStarlark(Cast(str))
	}
	pred["ROW"] = starlark.MakeInt(row)
	pred["COLUMN"] = starlark.MakeInt(column)

	prog := "rc=" + strings.TrimSpace(expr) + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}

	rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	switch rc := rc.(type) {
	case starlark.NoneType:
		v = workbook.Empty()
	case starlark.Bool:
		v = workbook.Bool(bool(rc))
	case starlark.Int:
		n, ok := rc.Int64()
		if !ok {
			err = ErrParseExpression(expr)
			return
		}
		v = workbook.Num(float64(n))
	case starlark.Float:
		v = workbook.Num(float64(rc))
	case starlark.String:
		v = workbook.Str(string(rc))
	default:
		err = ErrParseExpression(expr)
	}

	return
}

func toStarlark(v workbook.Value) starlark.Value {
	if n, ok := v.Number(); ok {
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return starlark.MakeInt64(int64(n))
		}
		return starlark.Float(n)
	}
	if b, ok := v.Boolean(); ok {
		return starlark.Bool(b)
	}
	return starlark.String(v.String())
}
