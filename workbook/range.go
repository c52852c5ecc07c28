package workbook

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Transform substitutes the value copied out of (column, row).
type Transform func(column, row int, v Value) (Value, error)

// Combine merges an incoming pasted value with the existing one.
type Combine func(existing, incoming Value) Value

// Cells is the minimal cell store the region helpers operate on.
type Cells interface {
	Cell(column, row int) Value
	SetCell(column, row int, v Value)
}

const (
	DENSE_CELLS = 1 << 16 // Cells a range stores contiguously before rows go sparse.
)

// Range is a rectangle of values. The column count is fixed; the row count
// grows when a row past the end is written. Rows are stored densely while
// the range fits in DENSE_CELLS; once a write lands beyond that, later rows
// are kept in a map and only once they hold a value.
type Range struct {
	Label   string // Label for Print.
	columns int
	rows    int
	dense   int
	cells   []Value
	sparse  map[int][]Value
}

// NewRange returns an empty range.
func NewRange(label string, columns, rows int) (r *Range) {
	r = &Range{
		Label:   label,
		columns: min(max(columns, 1), MAX_COLUMNS),
	}
	r.grow(min(max(rows, 0), MAX_ROWS))
	return
}

// FromGrid builds a range from nested rows; the widest row sets the column
// count.
func FromGrid(label string, grid [][]Value) (r *Range) {
	columns := 1
	for _, row := range grid {
		columns = max(columns, len(row))
	}

	r = NewRange(label, columns, len(grid))
	r.SetGrid(grid)
	return
}

// Columns returns the fixed column count.
func (r *Range) Columns() int {
	return r.columns
}

// Rows returns the current row count.
func (r *Range) Rows() int {
	return r.rows
}

// Bounds is an unqualified reference to the whole range.
func (r *Range) Bounds() Reference {
	return At(1, 1, r.columns, r.rows)
}

// line returns the storage of row, allocating a sparse row when create is
// set. It is nil for rows outside the range or never written.
func (r *Range) line(row int, create bool) []Value {
	if row < 1 || row > r.rows {
		return nil
	}
	if row <= r.dense {
		return r.cells[(row-1)*r.columns : row*r.columns]
	}

	line, ok := r.sparse[row]
	if !ok && create {
		if r.sparse == nil {
			r.sparse = map[int][]Value{}
		}
		line = make([]Value, r.columns)
		r.sparse[row] = line
	}
	return line
}

// lines yields every stored row in order.
func (r *Range) lines() iter.Seq2[int, []Value] {
	return func(yield func(int, []Value) bool) {
		for row := 1; row <= r.dense; row++ {
			if !yield(row, r.cells[(row-1)*r.columns:row*r.columns]) {
				return
			}
		}
		for _, row := range slices.Sorted(maps.Keys(r.sparse)) {
			if !yield(row, r.sparse[row]) {
				return
			}
		}
	}
}

// Cell reads (column, row). Absent cells are empty.
func (r *Range) Cell(column, row int) Value {
	if column < 1 || column > r.columns {
		return Value{}
	}
	line := r.line(row, false)
	if line == nil {
		return Value{}
	}
	return line[column-1]
}

// SetCell writes (column, row). Columns outside the range are ignored; rows
// past the end, up to MAX_ROWS, grow the range.
func (r *Range) SetCell(column, row int, v Value) {
	if column < 1 || column > r.columns || row < 1 || row > MAX_ROWS {
		return
	}
	r.grow(row)
	line := r.line(row, !v.IsEmpty())
	if line == nil {
		return
	}
	line[column-1] = v
}

func (r *Range) grow(rows int) {
	if rows <= r.rows {
		return
	}
	if r.dense == r.rows && rows*r.columns <= DENSE_CELLS {
		r.cells = append(r.cells, make([]Value, (rows-r.dense)*r.columns)...)
		r.dense = rows
	}
	r.rows = rows
}

// Copy extracts the rectangle into a new range, passing each value through
// transform when set.
func (r *Range) Copy(ref Reference, transform Transform) (*Range, error) {
	return CopyCells(r, ref, transform)
}

// Paste writes values into the rectangle; see PasteCells.
func (r *Range) Paste(values []Value, ref Reference, combine Combine) {
	PasteCells(r, values, ref, combine)
}

// Clear empties the rectangle without growing the range.
func (r *Range) Clear(ref Reference) {
	for c := range ref.Cells() {
		if c.Column > r.columns {
			continue
		}
		if line := r.line(c.Row, false); line != nil {
			line[c.Column-1] = Value{}
		}
	}
}

// Values returns the range as a flat row-major slice.
func (r *Range) Values() (values []Value) {
	values = make([]Value, r.columns*r.rows)
	for row, line := range r.lines() {
		copy(values[(row-1)*r.columns:], line)
	}
	return
}

// Grid returns the range as nested rows.
func (r *Range) Grid() (grid [][]Value) {
	grid = make([][]Value, r.rows)
	for y := range grid {
		grid[y] = make([]Value, r.columns)
	}
	for row, line := range r.lines() {
		copy(grid[row-1], line)
	}
	return
}

// SetGrid writes nested rows starting at R1C1.
func (r *Range) SetGrid(grid [][]Value) {
	for y, row := range grid {
		for x, v := range row {
			r.SetCell(x+1, y+1, v)
		}
	}
}

// All yields every non-empty cell with its coordinates.
func (r *Range) All() iter.Seq2[Coord, Value] {
	return func(yield func(Coord, Value) bool) {
		for row, line := range r.lines() {
			for x, v := range line {
				if v.IsEmpty() {
					continue
				}
				c := Coord{Column: x + 1, Row: row, X: x + 1, Y: row}
				if !yield(c, v) {
					return
				}
			}
		}
	}
}

// Print writes the range as a text table. Runs of rows that were never
// written print as a single "..." line.
func (r *Range) Print(w io.Writer) (err error) {
	label := r.Label
	if len(label) == 0 {
		label = "Range"
	}

	_, err = fmt.Fprintf(w, "%s (%dx%d)\n", label, r.columns, r.rows)
	if err != nil {
		return
	}

	widths := make([]int, r.columns)
	for _, line := range r.lines() {
		for x, v := range line {
			widths[x] = max(widths[x], 1, len(v.String()))
		}
	}

	out := make([]string, r.columns)
	last := 0
	for row, line := range r.lines() {
		if row > last+1 {
			_, err = fmt.Fprintln(w, "...")
			if err != nil {
				return
			}
		}
		last = row

		for x, v := range line {
			text := v.String()
			out[x] = strings.Repeat(" ", widths[x]-len(text)) + text
		}
		_, err = fmt.Fprintf(w, "[ %s ]\n", strings.Join(out, " | "))
		if err != nil {
			return
		}
	}

	if r.rows > last {
		_, err = fmt.Fprintln(w, "...")
	}

	return
}

// CopyCells extracts ref from any cell store into a new Range.
func CopyCells(src Cells, ref Reference, transform Transform) (out *Range, err error) {
	out = NewRange(ref.Address, ref.Columns, ref.Rows)
	for c := range ref.Cells() {
		v := src.Cell(c.Column, c.Row)
		if transform != nil {
			v, err = transform(c.Column, c.Row, v)
			if err != nil {
				return
			}
		}
		out.SetCell(c.X, c.Y, v)
	}
	return
}

// PasteCells writes values row-major into ref through dst.SetCell, so any
// write guard of dst applies. Missing values paste as empty.
func PasteCells(dst Cells, values []Value, ref Reference, combine Combine) {
	n := 0
	for c := range ref.Cells() {
		var v Value
		if n < len(values) {
			v = values[n]
		}
		n++
		if combine != nil {
			v = combine(dst.Cell(c.Column, c.Row), v)
		}
		dst.SetCell(c.Column, c.Row, v)
	}
}

// PasteGrid writes nested rows into ref, aligned at its top-left corner.
// Cells outside ref are ignored.
func PasteGrid(dst Cells, grid [][]Value, ref Reference, combine Combine) {
	values := make([]Value, 0, ref.Size())
	for y := range ref.Rows {
		for x := range ref.Columns {
			var v Value
			if y < len(grid) && x < len(grid[y]) {
				v = grid[y][x]
			}
			values = append(values, v)
		}
	}
	PasteCells(dst, values, ref, combine)
}
