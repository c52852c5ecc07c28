package cpu

import (
	"errors"
	"fmt"

	"github.com/ezrec/csvm/translate"
	"github.com/ezrec/csvm/workbook"
)

var f = translate.From

var (
	// Error kinds.
	ErrLoad   = errors.New(f("load"))
	ErrOpcode = errors.New(f("opcode"))
	ErrStack  = errors.New(f("stack"))

	// Load errors
	ErrLoadEmpty    = errors.New(f("program is empty"))
	ErrLoadSentinel = errors.New(f("program is missing CSVM metadata"))
	ErrLoadWidth    = errors.New(f("program width is not a positive integer within the column limit"))

	// Execution errors
	ErrStackEmpty    = errors.New(f("return from an empty stack"))
	ErrStackFull     = errors.New(f("call stack full"))
	ErrNotExecutable = errors.New(f("tried to jump to non-executable memory"))
	ErrIndirection   = errors.New(f("indirection too deep"))
	ErrKilled        = errors.New(f("killed"))
	ErrDefineName    = errors.New(f("named range must be text"))
)

// ErrOpcodeUnknown is an opcode cell that names no instruction.
type ErrOpcodeUnknown string

func (err ErrOpcodeUnknown) Error() string {
	return f("unknown instruction \"%v\"", string(err))
}

// ErrOpcodeUnimplemented is a reserved instruction with no behaviour yet.
type ErrOpcodeUnimplemented Opcode

func (err ErrOpcodeUnimplemented) Error() string {
	return f("opcode \"%v\" not implemented", Opcode(err).String())
}

func (err ErrOpcodeUnimplemented) Is(target error) (ok bool) {
	_, ok = target.(ErrOpcodeUnimplemented)
	return
}

// ErrExpectedReference is an operand that had to resolve to an address.
type ErrExpectedReference struct {
	Value workbook.Value
}

func (err *ErrExpectedReference) Error() string {
	return f("expected reference, got '%v'", err.Value.String())
}

// expectedReference joins the address kind with the offending value.
func expectedReference(v workbook.Value) error {
	return errors.Join(workbook.ErrAddress, &ErrExpectedReference{Value: v})
}

// ErrPanic is a handler fault recovered by the execution loop.
type ErrPanic struct {
	Value any
}

func (err *ErrPanic) Error() string {
	return f("fault: %v", err.Value)
}

// ErrCrash locates the instruction that stopped the machine.
type ErrCrash struct {
	Column int
	Row    int
	Opcode string
	Err    error
}

func (err *ErrCrash) Error() string {
	at := fmt.Sprintf("R%dC%d", err.Row, err.Column)
	if len(err.Opcode) == 0 {
		return f("%v: %v", at, err.Err)
	}
	return f("%v %v: %v", at, err.Opcode, err.Err)
}

func (err *ErrCrash) Unwrap() error {
	return err.Err
}
