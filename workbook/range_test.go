package workbook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeCell(t *testing.T) {
	assert := assert.New(t)

	r := NewRange("r", 3, 1)
	assert.Equal(3, r.Columns())
	assert.Equal(1, r.Rows())

	r.SetCell(2, 1, Num(5))
	assert.Equal(Num(5), r.Cell(2, 1))
	assert.True(r.Cell(1, 1).IsEmpty())

	// Columns never grow.
	r.SetCell(4, 1, Num(1))
	assert.True(r.Cell(4, 1).IsEmpty())
	assert.Equal(3, r.Columns())

	// Rows do.
	r.SetCell(1, 4, Str("x"))
	assert.Equal(4, r.Rows())
	assert.Equal(Str("x"), r.Cell(1, 4))
	assert.True(r.Cell(1, 3).IsEmpty())
	assert.True(r.Cell(1, 9).IsEmpty())
}

func TestRangeCopyPaste(t *testing.T) {
	assert := assert.New(t)

	r := FromGrid("r", [][]Value{
		{Num(1), Num(2), Num(3)},
		{Num(4), Num(5), Num(6)},
	})

	ref := At(2, 1, 2, 2)
	out, err := r.Copy(ref, nil)
	assert.NoError(err)
	assert.Equal([]Value{Num(2), Num(3), Num(5), Num(6)}, out.Values())
	assert.Equal([][]Value{{Num(2), Num(3)}, {Num(5), Num(6)}}, out.Grid())

	before := r.Values()
	r.Paste(out.Values(), ref, nil)
	assert.Equal(before, r.Values())

	r.Paste([]Value{Num(10), Num(20)}, At(1, 2, 2, 1), func(existing, incoming Value) Value {
		return Num(existing.Coerce() + incoming.Coerce())
	})
	assert.Equal(Num(14), r.Cell(1, 2))
	assert.Equal(Num(25), r.Cell(2, 2))

	// Short pastes empty the remainder.
	r.Paste([]Value{Num(7)}, At(1, 1, 2, 1), nil)
	assert.Equal(Num(7), r.Cell(1, 1))
	assert.True(r.Cell(2, 1).IsEmpty())
}

func TestRangeTransform(t *testing.T) {
	assert := assert.New(t)

	r := FromGrid("r", [][]Value{{Num(1), Num(2)}})
	out, err := r.Copy(r.Bounds(), func(column, row int, v Value) (Value, error) {
		return Num(v.Coerce() * float64(column)), nil
	})
	assert.NoError(err)
	assert.Equal([]Value{Num(1), Num(4)}, out.Values())
}

func TestRangeClear(t *testing.T) {
	assert := assert.New(t)

	r := FromGrid("r", [][]Value{{Num(1), Num(0)}})
	r.Clear(At(1, 1, 2, 3))
	assert.True(r.Cell(1, 1).IsEmpty())
	assert.True(r.Cell(2, 1).IsEmpty())
	assert.Equal(1, r.Rows())
}

func TestPasteGrid(t *testing.T) {
	assert := assert.New(t)

	r := NewRange("r", 3, 3)
	PasteGrid(r, [][]Value{{Num(1), Num(2), Num(9)}, {Num(3)}}, At(2, 2, 2, 2), nil)
	assert.Equal(Num(1), r.Cell(2, 2))
	assert.Equal(Num(2), r.Cell(3, 2))
	assert.Equal(Num(3), r.Cell(2, 3))
	assert.True(r.Cell(3, 3).IsEmpty())
}

func TestRangePrint(t *testing.T) {
	assert := assert.New(t)

	r := FromGrid("data", [][]Value{
		{Str("copy"), Num(10)},
		{Str("a"), Empty()},
	})

	var out strings.Builder
	assert.NoError(r.Print(&out))
	assert.Equal("data (2x2)\n[ copy | 10 ]\n[    a |    ]\n", out.String())
}

func TestRangeSparse(t *testing.T) {
	assert := assert.New(t)

	r := NewRange("far", 4, 1)
	r.SetCell(1, 200000000, Num(7))

	assert.Equal(200000000, r.Rows())
	assert.Equal(Num(7), r.Cell(1, 200000000))
	assert.True(r.Cell(1, 199999999).IsEmpty())
	assert.LessOrEqual(len(r.cells), DENSE_CELLS)
	assert.Len(r.sparse, 1)

	// Empty writes past the dense rows allocate nothing.
	r.SetCell(2, 300000000, Value{})
	assert.Equal(300000000, r.Rows())
	assert.Len(r.sparse, 1)

	r.Clear(At(1, 200000000, 1, 1))
	assert.True(r.Cell(1, 200000000).IsEmpty())

	r.SetCell(1, MAX_ROWS+1, Num(1))
	assert.Equal(300000000, r.Rows())

	out, err := r.Copy(At(1, 199999999, 2, 2), nil)
	assert.NoError(err)
	assert.Equal(2, out.Rows())

	var count int
	for range r.All() {
		count++
	}
	assert.Equal(0, count)
}

func TestRangeSparsePrint(t *testing.T) {
	assert := assert.New(t)

	r := NewRange("far", 1, 1)
	r.SetCell(1, 1, Num(1))
	r.SetCell(1, 100000000, Num(2))
	r.SetCell(1, 100000002, Value{})

	var sb strings.Builder
	assert.NoError(r.Print(&sb))
	assert.Equal("far (1x100000002)\n[ 1 ]\n...\n[ 2 ]\n...\n", sb.String())
}
