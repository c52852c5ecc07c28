package workbook

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the variant tag of a cell Value.
type Kind int

const (
	KIND_EMPTY   = Kind(0) // Absent cell.
	KIND_NUMBER  = Kind(1) // float64
	KIND_BOOLEAN = Kind(2) // bool
	KIND_TEXT    = Kind(3) // string
	KIND_REF     = Kind(4) // Reference
)

// Value is a single cell: empty, number, boolean, text or Reference.
// The zero Value is empty. Values are plain data; copying a Value that holds
// a Reference copies the Reference.
type Value struct {
	kind Kind
	num  float64
	text string
	ref  Reference
}

// Empty returns the empty value.
func Empty() Value { return Value{} }

// Num returns a number value.
func Num(n float64) Value { return Value{kind: KIND_NUMBER, num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KIND_BOOLEAN}
	if b {
		v.num = 1
	}
	return v
}

// Str returns a text value.
func Str(s string) Value { return Value{kind: KIND_TEXT, text: s} }

// Ref returns a value holding an address.
func Ref(ref Reference) Value { return Value{kind: KIND_REF, ref: ref} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty is true for the empty value.
func (v Value) IsEmpty() bool { return v.kind == KIND_EMPTY }

// Number returns the number, if v is a number.
func (v Value) Number() (n float64, ok bool) {
	if v.kind == KIND_NUMBER {
		n, ok = v.num, true
	}
	return
}

// Boolean returns the boolean, if v is a boolean.
func (v Value) Boolean() (b bool, ok bool) {
	if v.kind == KIND_BOOLEAN {
		b, ok = v.num != 0, true
	}
	return
}

// Text returns the text, if v is text.
func (v Value) Text() (s string, ok bool) {
	if v.kind == KIND_TEXT {
		s, ok = v.text, true
	}
	return
}

// Reference returns the address, if v holds one.
func (v Value) Reference() (ref Reference, ok bool) {
	if v.kind == KIND_REF {
		ref, ok = v.ref, true
	}
	return
}

// Truthy reports whether the value counts as true: non-zero numbers,
// true, non-empty text and any Reference.
func (v Value) Truthy() bool {
	switch v.kind {
	case KIND_NUMBER:
		return v.num != 0 && !math.IsNaN(v.num)
	case KIND_BOOLEAN:
		return v.num != 0
	case KIND_TEXT:
		return len(v.text) != 0
	case KIND_REF:
		return true
	}
	return false
}

// Coerce converts a value for arithmetic: numbers pass through, every
// other value becomes 1 if truthy and 0 otherwise.
func (v Value) Coerce() float64 {
	if v.kind == KIND_NUMBER {
		return v.num
	}
	if v.Truthy() {
		return 1
	}
	return 0
}

// loose returns the numeric reading used by comparisons.
func (v Value) loose() (n float64, ok bool) {
	switch v.kind {
	case KIND_NUMBER, KIND_BOOLEAN:
		return v.num, true
	case KIND_TEXT:
		s := strings.TrimSpace(v.text)
		if len(s) == 0 {
			return 0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil
	}
	return
}

// Equal compares two values loosely: same-kind values compare directly,
// numbers, booleans and numeric text compare as numbers.
func (v Value) Equal(o Value) bool {
	if v.kind == o.kind {
		switch v.kind {
		case KIND_EMPTY:
			return true
		case KIND_TEXT:
			return v.text == o.text
		case KIND_REF:
			return v.ref.Equal(o.ref)
		default:
			return v.num == o.num
		}
	}

	if v.kind == KIND_EMPTY || o.kind == KIND_EMPTY || v.kind == KIND_REF || o.kind == KIND_REF {
		return false
	}

	a, ok := v.loose()
	if !ok {
		return false
	}
	b, ok := o.loose()
	if !ok {
		return false
	}
	return a == b
}

// Greater reports v > o. Text compares lexically against text; everything
// else compares numerically and is false when either side is not a number.
func (v Value) Greater(o Value) bool {
	if v.kind == KIND_TEXT && o.kind == KIND_TEXT {
		return v.text > o.text
	}
	if v.kind == KIND_EMPTY || o.kind == KIND_EMPTY || v.kind == KIND_REF || o.kind == KIND_REF {
		return false
	}

	a, ok := v.loose()
	if !ok {
		return false
	}
	b, ok := o.loose()
	if !ok {
		return false
	}
	return a > b
}

// FormatNumber renders a number without exponent for ordinary magnitudes.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case math.Abs(n) >= 1e21:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// String renders the value as it would be printed. References render as
// direct pointers.
func (v Value) String() string {
	switch v.kind {
	case KIND_NUMBER:
		return FormatNumber(v.num)
	case KIND_BOOLEAN:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KIND_TEXT:
		return v.text
	case KIND_REF:
		return string(DIRECT) + v.ref.String()
	}
	return ""
}
