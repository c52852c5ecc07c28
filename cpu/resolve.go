package cpu

import (
	"errors"
	"strings"

	"github.com/ezrec/csvm/workbook"
)

const (
	INDIRECTION_LIMIT = 64 // Maximum depth of chained indirect operands.
)

// Resolve applies operand pointer resolution to a raw cell value read from
// (column, row). Text starting with '=' or '*' becomes the Reference it
// names; text starting with '&' becomes the value stored at that address,
// itself resolved again. Everything else is a literal.
func (cpu *Cpu) Resolve(column, row int, v workbook.Value) (workbook.Value, error) {
	return cpu.resolve(column, row, v, 0)
}

func (cpu *Cpu) resolve(column, row int, v workbook.Value, depth int) (out workbook.Value, err error) {
	text, ok := v.Text()
	if !ok {
		out = v
		return
	}

	text = strings.TrimSpace(text)
	out = workbook.Str(text)
	if len(text) == 0 {
		return
	}

	operator := text[0]
	switch operator {
	case workbook.DIRECT, workbook.DIRECT_ALT, workbook.INDIRECT:
	default:
		return
	}

	ref, err := cpu.lookup(column, row, text[1:])
	if err != nil {
		return
	}

	if operator != workbook.INDIRECT {
		out = workbook.Ref(ref)
		return
	}

	if depth >= INDIRECTION_LIMIT {
		err = errors.Join(workbook.ErrAddress, ErrIndirection)
		return
	}

	value, err := cpu.Book.Cell(ref)
	if err != nil {
		return
	}

	return cpu.resolve(ref.Column, ref.Row, value, depth+1)
}

// lookup substitutes a named range or parses an address relative to
// (column, row). Unqualified addresses refer to the data sheet.
func (cpu *Cpu) lookup(column, row int, address string) (ref workbook.Reference, err error) {
	if alias, ok := cpu.Names[address]; ok {
		ref = alias
	} else {
		ref, err = workbook.ParseAt(column, row, address)
		if err != nil {
			return
		}
	}

	if len(ref.Sheet) == 0 {
		ref.Sheet = SHEET_DATA
	}
	return
}
