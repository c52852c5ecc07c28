package workbook

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
)

// Pointer sigils. A text operand starting with DIRECT (or DIRECT_ALT)
// resolves to the address it names; one starting with INDIRECT resolves to
// the value stored there.
const (
	DIRECT     = '='
	DIRECT_ALT = '*'
	INDIRECT   = '&'
)

// Addressable extent of a sheet.
const (
	MAX_COLUMNS = 16384     // Column XFD.
	MAX_ROWS    = 1<<31 - 1 // Last addressable row.
	MAX_CELLS   = 1 << 20   // Largest rectangle one reference may name.
)

var (
	reSheet = regexp.MustCompile(`^(?:(\w+)!)?(.*)$`)
	reR1C1  = regexp.MustCompile(`(?i)^r(?:\[(-?\d+)\]|(-?\d+))c(?:\[(-?\d+)\]|(-?\d+))$`)
	reA1    = regexp.MustCompile(`(?i)^([a-z]+)(\d+)$`)
)

// Reference names a rectangle of cells, optionally on a named sheet.
// An empty Sheet lets the caller pick the sheet.
type Reference struct {
	Sheet   string // Sheet name, or "" for the caller's default.
	Column  int    // Left column, 1-based.
	Row     int    // Top row, 1-based.
	Columns int    // Width, at least 1.
	Rows    int    // Height, at least 1.
	Address string // Source text, if parsed.
}

// Coord is one cell of a Reference: its sheet coordinates and its
// 1-based position (X, Y) inside the rectangle.
type Coord struct {
	Column int
	Row    int
	X      int
	Y      int
}

// At returns an unqualified reference to a rectangle. Extents below 1 are
// raised to 1.
func At(column, row, columns, rows int) (ref Reference) {
	ref = Reference{
		Column:  column,
		Row:     row,
		Columns: max(columns, 1),
		Rows:    max(rows, 1),
	}
	ref.Address = ref.String()
	return
}

// Parse parses an address relative to R1C1.
func Parse(address string) (Reference, error) {
	return ParseAt(1, 1, address)
}

// ParseAt parses an address in A1 or R1C1 notation, optionally prefixed
// with `sheet!`. Bracketed R1C1 offsets are relative to (column, row),
// the cell that holds the address.
func ParseAt(column, row int, address string) (ref Reference, err error) {
	address = strings.TrimSpace(address)
	ref = Reference{Column: 1, Row: 1, Columns: 1, Rows: 1, Address: address}

	match := reSheet.FindStringSubmatch(address)
	ref.Sheet = match[1]
	body := match[2]

	corners := strings.Split(body, ":")
	if len(corners) > 2 {
		err = addressError(address, ErrRangeCorners)
		return
	}

	parsed := make([][2]int, len(corners))
	r1c1 := make([]bool, len(corners))
	for n, corner := range corners {
		corner = strings.TrimSpace(corner)
		r1c1[n] = reR1C1.MatchString(corner)
		if r1c1[n] {
			parsed[n], err = parseR1C1(column, row, corner)
		} else {
			parsed[n], err = parseA1(corner)
		}
		if err != nil {
			err = addressError(address, err)
			return
		}
		if parsed[n][0] < 1 || parsed[n][1] < 1 ||
			parsed[n][0] > MAX_COLUMNS || parsed[n][1] > MAX_ROWS {
			err = addressError(address, ErrOutOfBounds)
			return
		}
	}

	if len(corners) == 2 && r1c1[0] != r1c1[1] {
		err = addressError(address, ErrMixedNotation)
		return
	}

	a := parsed[0]
	ref.Column, ref.Row = a[0], a[1]
	if len(parsed) == 2 {
		b := parsed[1]
		ref.Column = min(a[0], b[0])
		ref.Row = min(a[1], b[1])
		ref.Columns = max(a[0], b[0]) - ref.Column + 1
		ref.Rows = max(a[1], b[1]) - ref.Row + 1
	}

	if ref.Size() > MAX_CELLS {
		err = addressError(address, ErrTooLarge)
		return
	}

	return
}

func parseA1(cell string) (cr [2]int, err error) {
	match := reA1.FindStringSubmatch(cell)
	if match == nil {
		err = ErrParseA1(cell)
		return
	}

	cr[0], err = columnNumber(match[1])
	if err != nil {
		return
	}
	cr[1], err = strconv.Atoi(match[2])
	if err != nil {
		err = errors.Join(ErrParseA1(cell), err)
	}
	return
}

func parseR1C1(column, row int, cell string) (cr [2]int, err error) {
	match := reR1C1.FindStringSubmatch(cell)
	if match == nil {
		err = ErrParseR1C1(cell)
		return
	}

	axis := func(relative, absolute string, base int) (n int, err error) {
		if len(absolute) != 0 {
			return strconv.Atoi(absolute)
		}
		n, err = strconv.Atoi(relative)
		n += base
		return
	}

	cr[1], err = axis(match[1], match[2], row)
	if err != nil {
		err = errors.Join(ErrParseR1C1(cell), err)
		return
	}
	cr[0], err = axis(match[3], match[4], column)
	if err != nil {
		err = errors.Join(ErrParseR1C1(cell), err)
	}
	return
}

// ColumnNumber decodes base-26 column letters: A=1 .. Z=26, AA=27.
// Letters are case-insensitive. Failures are ErrAddress; columns past
// MAX_COLUMNS are also ErrOutOfBounds.
func ColumnNumber(letters string) (column int, err error) {
	column, err = columnNumber(letters)
	if err != nil {
		column = 0
		err = addressError(letters, err)
	}
	return
}

func columnNumber(letters string) (column int, err error) {
	if len(letters) == 0 {
		err = ErrParseA1(letters)
		return
	}

	for _, l := range strings.ToUpper(letters) {
		if l < 'A' || l > 'Z' {
			err = ErrParseA1(letters)
			return
		}
		column = column*26 + int(l-'A'+1)
		if column > MAX_COLUMNS {
			err = ErrOutOfBounds
			return
		}
	}
	return
}

// ColumnName encodes a column number as base-26 letters.
func ColumnName(column int) string {
	var name []byte
	for column > 0 {
		column--
		name = append([]byte{byte('A' + column%26)}, name...)
		column /= 26
	}
	return string(name)
}

func (ref Reference) prefix() string {
	if len(ref.Sheet) == 0 {
		return ""
	}
	return ref.Sheet + "!"
}

// String renders the reference as an absolute R1C1 range.
func (ref Reference) String() string {
	return fmt.Sprintf("%sR%dC%d:R%dC%d", ref.prefix(),
		ref.Row, ref.Column,
		ref.Row+ref.Rows-1, ref.Column+ref.Columns-1)
}

// A1 renders the reference in letter-number notation.
func (ref Reference) A1() string {
	start := fmt.Sprintf("%s%d", ColumnName(ref.Column), ref.Row)
	if ref.Columns == 1 && ref.Rows == 1 {
		return ref.prefix() + start
	}
	return fmt.Sprintf("%s%s:%s%d", ref.prefix(), start,
		ColumnName(ref.Column+ref.Columns-1), ref.Row+ref.Rows-1)
}

// Equal compares sheet and rectangle, ignoring the source text.
func (ref Reference) Equal(o Reference) bool {
	return ref.Sheet == o.Sheet &&
		ref.Column == o.Column && ref.Row == o.Row &&
		ref.Columns == o.Columns && ref.Rows == o.Rows
}

// Size is the number of cells in the rectangle.
func (ref Reference) Size() int {
	return ref.Columns * ref.Rows
}

// Contains reports whether (column, row) is inside the rectangle.
func (ref Reference) Contains(column, row int) bool {
	return column >= ref.Column && column < ref.Column+ref.Columns &&
		row >= ref.Row && row < ref.Row+ref.Rows
}

// Cells yields the rectangle's coordinates in row-major order.
func (ref Reference) Cells() iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		for y := 1; y <= ref.Rows; y++ {
			for x := 1; x <= ref.Columns; x++ {
				coord := Coord{
					Column: ref.Column + x - 1,
					Row:    ref.Row + y - 1,
					X:      x,
					Y:      y,
				}
				if !yield(coord) {
					return
				}
			}
		}
	}
}
