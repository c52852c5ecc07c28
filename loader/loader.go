// Package loader builds CSVM program grids from delimited text.
//
// Each line is one row. Cells that look like numbers become numbers, and
// true/false (in any case) become booleans; everything else is text.
// A cell may also contain $(...) expressions, evaluated with Starlark when
// the program is loaded.
package loader

import (
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/ezrec/csvm/cpu"
	"github.com/ezrec/csvm/workbook"
)

var (
	reNumber = regexp.MustCompile(`^-?(0?\.|[1-9])[\d\.]*$`)
)

// Cast types a raw cell. An empty field is an empty cell.
func Cast(text string) workbook.Value {
	if len(text) == 0 {
		return workbook.Empty()
	}
	if text == "0" {
		return workbook.Num(0)
	}
	if reNumber.MatchString(text) {
		n, err := strconv.ParseFloat(text, 64)
		if err == nil {
			return workbook.Num(n)
		}
	}
	switch strings.ToLower(text) {
	case "true":
		return workbook.Bool(true)
	case "false":
		return workbook.Bool(false)
	}
	return workbook.Str(text)
}

// Loader parses delimited program text.
type Loader struct {
	Verbose bool         // If set, logs every parsed row.
	Logger  *slog.Logger // slog.Default() if nil.
	Comma   rune         // Field separator; ',' if zero.

	predefine map[string]string
}

// Predefine sets a constant visible to $(...) expressions.
func (ld *Loader) Predefine(name string, value string) {
	if ld.predefine == nil {
		ld.predefine = map[string]string{name: value}
	} else {
		ld.predefine[name] = value
	}
}

// PredefineAll sets every constant of defines.
func (ld *Loader) PredefineAll(defines iter.Seq2[string, string]) {
	for name, value := range defines {
		ld.Predefine(name, value)
	}
}

func (ld *Loader) defines() iter.Seq2[string, string] {
	return maps.All(ld.predefine)
}

// Parse reads delimited text into a grid. Blank lines between rows are kept
// as empty rows.
func (ld *Loader) Parse(input io.Reader) (grid [][]workbook.Value, err error) {
	logger := ld.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if ld.Comma != 0 {
		reader.Comma = ld.Comma
	}

	last := 0
	for {
		var record []string
		record, err = reader.Read()
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				err = &ErrSyntax{LineNo: perr.Line, Column: perr.Column, Err: perr.Err}
			}
			return
		}

		line, _ := reader.FieldPos(0)
		if len(grid) > 0 {
			for range line - last - 1 {
				grid = append(grid, nil)
			}
		}

		row := make([]workbook.Value, len(record))
		for n, text := range record {
			row[n], err = ld.expand(text, n+1, len(grid)+1)
			if err != nil {
				err = &ErrSyntax{LineNo: line, Column: n + 1, Cell: text, Err: err}
				return
			}
		}

		if ld.Verbose {
			logger.Debug("loader: row", "line", line, "cells", len(row))
		}
		grid = append(grid, row)

		last, _ = reader.FieldPos(len(record) - 1)
		last += strings.Count(record[len(record)-1], "\n")
	}

	return
}

// Load parses input into a program.
func (ld *Loader) Load(input io.Reader) (prog *cpu.Program, err error) {
	grid, err := ld.Parse(input)
	if err != nil {
		return
	}

	return cpu.NewProgram(grid)
}
