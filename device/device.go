// Package device provides the memory-mapped peripherals of the CSVM.
//
// Every device is a workbook.Sheet that intercepts writes: Stdout prints
// what it is given, Display renders its pixel pages to an image, and Synth
// plays its voice rows and raises an interrupt when a voice completes.
package device

import (
	"errors"

	"github.com/ezrec/csvm/translate"
	"github.com/ezrec/csvm/workbook"
)

var f = translate.From

var (
	ErrDevice = errors.New(f("device"))
)

// Interrupter accepts completion callbacks from devices. A *cpu.Cpu is an
// Interrupter.
type Interrupter interface {
	Interrupt(v workbook.Value)
}

// integer reads a control cell as an integer, falling back when empty.
func integer(v workbook.Value, otherwise int) int {
	if v.IsEmpty() {
		return otherwise
	}
	return int(v.Coerce())
}
