package cpu

import (
	"errors"
	"math"
	"strings"

	"github.com/ezrec/csvm/workbook"
)

const (
	SENTINEL = "csvm" // Marker in R1C1 of every program.
)

// Program is a validated program grid. Row 1 holds the metadata
// [sentinel, version, columns]; every later row is one instruction.
type Program struct {
	Version float64
	Columns int
	Grid    [][]workbook.Value
}

// NewProgram validates a program grid.
func NewProgram(grid [][]workbook.Value) (prog *Program, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrLoad, err)
		}
	}()

	if len(grid) == 0 || len(grid[0]) == 0 {
		err = ErrLoadEmpty
		return
	}

	meta := grid[0]
	sentinel, ok := meta[0].Text()
	if !ok || strings.TrimSpace(sentinel) != SENTINEL {
		err = ErrLoadSentinel
		return
	}

	var width workbook.Value
	if len(meta) > 2 {
		width = meta[2]
	}
	columns, ok := width.Number()
	if !ok || columns < 1 || columns > workbook.MAX_COLUMNS || columns != math.Trunc(columns) {
		err = ErrLoadWidth
		return
	}

	prog = &Program{
		Columns: int(columns),
		Grid:    grid,
	}
	if len(meta) > 1 {
		prog.Version, _ = meta[1].Number()
	}

	return
}

// Rows is the number of grid rows, metadata included.
func (prog *Program) Rows() int {
	return len(prog.Grid)
}

// Sheet returns a fresh data sheet holding the program. Cells beyond the
// declared width are dropped.
func (prog *Program) Sheet() (data *workbook.Sheet) {
	data = workbook.NewSheet(SHEET_DATA, prog.Columns, len(prog.Grid))
	data.SetGrid(prog.Grid)
	return
}
