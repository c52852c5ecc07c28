package cpu

import (
	"errors"
	"fmt"
	"math"

	"github.com/ezrec/csvm/workbook"
)

// reference requires an operand that resolved to an address.
func reference(v workbook.Value) (ref workbook.Reference, err error) {
	ref, ok := v.Reference()
	if !ok {
		err = expectedReference(v)
	}
	return
}

// deref reads the cell an address operand names; literals pass through.
func (cpu *Cpu) deref(v workbook.Value) (workbook.Value, error) {
	if ref, ok := v.Reference(); ok {
		return cpu.Book.Cell(ref)
	}
	return v, nil
}

// valueAt indexes values, reading past the end as empty.
func valueAt(values []workbook.Value, n int) workbook.Value {
	if n < len(values) {
		return values[n]
	}
	return workbook.Value{}
}

// binaryOp builds an elementwise `dst = dst OP operand` instruction over the
// extent of dst. Operands are coerced to numbers.
func binaryOp(fn func(a, b float64) float64) handler {
	return func(cpu *Cpu, args []workbook.Value) (jumped bool, err error) {
		dst, err := reference(args[0])
		if err != nil {
			return
		}

		a, err := cpu.Book.Values(args[0], dst)
		if err != nil {
			return
		}
		b, err := cpu.Book.Values(args[1], dst)
		if err != nil {
			return
		}

		result := make([]workbook.Value, len(a))
		for n := range a {
			result[n] = workbook.Num(fn(a[n].Coerce(), valueAt(b, n).Coerce()))
		}

		err = cpu.Book.Paste(result, dst, nil)
		return
	}
}

// unaryOp builds an elementwise `dst = OP dst` instruction.
func unaryOp(fn func(a float64) float64) handler {
	return func(cpu *Cpu, args []workbook.Value) (jumped bool, err error) {
		dst, err := reference(args[0])
		if err != nil {
			return
		}

		a, err := cpu.Book.Values(args[0], dst)
		if err != nil {
			return
		}

		result := make([]workbook.Value, len(a))
		for n, v := range a {
			result[n] = workbook.Num(fn(v.Coerce()))
		}

		err = cpu.Book.Paste(result, dst, nil)
		return
	}
}

func (cpu *Cpu) opNoop(args []workbook.Value) (jumped bool, err error) {
	return
}

func (cpu *Cpu) opClear(args []workbook.Value) (jumped bool, err error) {
	dst, err := reference(args[0])
	if err != nil {
		return
	}

	err = cpu.Book.Clear(dst)
	return
}

func (cpu *Cpu) opCopy(args []workbook.Value) (jumped bool, err error) {
	dst, err := reference(args[1])
	if err != nil {
		return
	}

	values, err := cpu.Book.Values(args[0], dst)
	if err != nil {
		return
	}

	err = cpu.Book.Paste(values, dst, nil)
	return
}

// jump moves the program counter into program memory.
func (cpu *Cpu) jump(target workbook.Reference) (jumped bool, err error) {
	if len(target.Sheet) != 0 && target.Sheet != SHEET_DATA {
		err = errors.Join(workbook.ErrAddress, ErrNotExecutable)
		return
	}

	cpu.PcColumn, cpu.PcRow = target.Column, target.Row
	jumped = true
	return
}

// call saves the program counter and jumps. Interrupt dispatch marks its
// frame so the handler's return resumes the interrupted instruction.
func (cpu *Cpu) call(target workbook.Reference, interrupt bool) (jumped bool, err error) {
	if len(target.Sheet) != 0 && target.Sheet != SHEET_DATA {
		err = errors.Join(workbook.ErrAddress, ErrNotExecutable)
		return
	}

	err = cpu.Stack.Push(Frame{Column: cpu.PcColumn, Row: cpu.PcRow, Interrupt: interrupt})
	if err != nil {
		err = errors.Join(ErrStack, err)
		return
	}

	return cpu.jump(target)
}

func (cpu *Cpu) opJump(args []workbook.Value) (jumped bool, err error) {
	target, err := reference(args[0])
	if err != nil {
		return
	}

	return cpu.jump(target)
}

func (cpu *Cpu) opCall(args []workbook.Value) (jumped bool, err error) {
	target, err := reference(args[0])
	if err != nil {
		return
	}

	return cpu.call(target, false)
}

func (cpu *Cpu) opReturn(args []workbook.Value) (jumped bool, err error) {
	frame, ok := cpu.Stack.Pop()
	if !ok {
		err = errors.Join(ErrStack, ErrStackEmpty)
		return
	}

	cpu.PcColumn, cpu.PcRow = frame.Column, frame.Row
	if !frame.Interrupt {
		cpu.PcRow++
	}

	jumped = true
	return
}

// branch jumps to target when taken.
func (cpu *Cpu) branch(target workbook.Value, taken func() (bool, error)) (jumped bool, err error) {
	ref, err := reference(target)
	if err != nil {
		return
	}

	ok, err := taken()
	if err != nil || !ok {
		return
	}

	return cpu.jump(ref)
}

func (cpu *Cpu) opIf(args []workbook.Value) (jumped bool, err error) {
	return cpu.branch(args[1], func() (ok bool, err error) {
		cond, err := cpu.deref(args[0])
		ok = cond.Truthy()
		return
	})
}

func (cpu *Cpu) opElse(args []workbook.Value) (jumped bool, err error) {
	return cpu.branch(args[1], func() (ok bool, err error) {
		cond, err := cpu.deref(args[0])
		ok = !cond.Truthy()
		return
	})
}

// compare dereferences both operands of eq and gt.
func (cpu *Cpu) compare(args []workbook.Value, test func(a, b workbook.Value) bool) (jumped bool, err error) {
	return cpu.branch(args[2], func() (ok bool, err error) {
		a, err := cpu.deref(args[0])
		if err != nil {
			return
		}
		b, err := cpu.deref(args[1])
		if err != nil {
			return
		}
		ok = test(a, b)
		return
	})
}

func (cpu *Cpu) opEq(args []workbook.Value) (jumped bool, err error) {
	return cpu.compare(args, workbook.Value.Equal)
}

func (cpu *Cpu) opGt(args []workbook.Value) (jumped bool, err error) {
	return cpu.compare(args, workbook.Value.Greater)
}

func (cpu *Cpu) opPointer(args []workbook.Value) (jumped bool, err error) {
	src, err := reference(args[0])
	if err != nil {
		return
	}
	dst, err := reference(args[1])
	if err != nil {
		return
	}

	tuple := []workbook.Value{
		workbook.Str(src.Sheet),
		workbook.Num(float64(src.Column)),
		workbook.Num(float64(src.Row)),
		workbook.Num(float64(src.Columns)),
		workbook.Num(float64(src.Rows)),
	}

	err = cpu.Book.Paste(tuple, dst, nil)
	return
}

// coordinate reads a tuple field as an integer, defaulting when empty.
func coordinate(v workbook.Value, otherwise int) int {
	if v.IsEmpty() {
		return otherwise
	}
	return int(math.Trunc(v.Coerce()))
}

func (cpu *Cpu) opAddress(args []workbook.Value) (jumped bool, err error) {
	src, err := reference(args[0])
	if err != nil {
		return
	}
	dst, err := reference(args[1])
	if err != nil {
		return
	}

	tuple, err := cpu.Book.Values(args[0], dst)
	if err != nil {
		return
	}

	sheet := src.Sheet
	if v := valueAt(tuple, 0); !v.IsEmpty() {
		sheet = v.String()
	}
	c := coordinate(valueAt(tuple, 1), 1)
	r := coordinate(valueAt(tuple, 2), 1)
	w := coordinate(valueAt(tuple, 3), 1)
	h := coordinate(valueAt(tuple, 4), 1)

	pointer := fmt.Sprintf("%c%s!R%dC%d:R%dC%d", workbook.DIRECT, sheet, r, c, r+h-1, c+w-1)
	err = cpu.Book.SetCell(dst, workbook.Str(pointer))
	return
}

func (cpu *Cpu) opLocal(args []workbook.Value) (jumped bool, err error) {
	_, err = reference(args[0])
	if err != nil {
		return
	}
	dst, err := reference(args[1])
	if err != nil {
		return
	}

	tuple, err := cpu.Book.Values(args[0], dst)
	if err != nil {
		return
	}

	c := coordinate(valueAt(tuple, 0), 1)
	r := coordinate(valueAt(tuple, 1), 1)

	pointer := fmt.Sprintf("%cR%dC%d", workbook.DIRECT, r, c)
	err = cpu.Book.SetCell(dst, workbook.Str(pointer))
	return
}

func (cpu *Cpu) opDefine(args []workbook.Value) (jumped bool, err error) {
	name, ok := args[0].Text()
	if !ok || len(name) == 0 {
		err = errors.Join(workbook.ErrAddress, ErrDefineName)
		return
	}
	location, err := reference(args[1])
	if err != nil {
		return
	}

	cpu.Names[name] = location
	return
}

func (cpu *Cpu) opSleep(args []workbook.Value) (jumped bool, err error) {
	cpu.state = STATE_IDLE
	return
}

func (cpu *Cpu) opExit(args []workbook.Value) (jumped bool, err error) {
	cpu.PcColumn = coordinate(cpu.Registers.Cell(REG_PC_COLUMN, 1), cpu.PcColumn)
	cpu.PcRow = coordinate(cpu.Registers.Cell(REG_PC_ROW, 1), cpu.PcRow)
	cpu.terminate()

	jumped = true
	return
}

func (cpu *Cpu) opRand(args []workbook.Value) (jumped bool, err error) {
	dst, err := reference(args[0])
	if err != nil {
		return
	}

	result := make([]workbook.Value, dst.Size())
	for n := range result {
		result[n] = workbook.Num(cpu.rand.Float64())
	}

	err = cpu.Book.Paste(result, dst, nil)
	return
}
