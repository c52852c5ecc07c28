package cpu

import (
	"errors"
	"fmt"

	"github.com/ezrec/csvm/workbook"
)

// State is the execution state of a Cpu.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING    = State(0) // running
	STATE_IDLE       = State(1) // idle
	STATE_PAUSED     = State(2) // paused
	STATE_TERMINATED = State(3) // terminated
	STATE_CRASHED    = State(4) // crashed
)

// Final is true for the states a Cpu never leaves.
func (st State) Final() bool {
	return st == STATE_TERMINATED || st == STATE_CRASHED
}

// State returns the current execution state.
func (cpu *Cpu) State() State {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()

	return cpu.state
}

// Err returns the crash that stopped the CPU, if any.
func (cpu *Cpu) Err() error {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()

	return cpu.err
}

// Done is closed when the CPU terminates or crashes.
func (cpu *Cpu) Done() <-chan struct{} {
	return cpu.done
}

// Start begins scheduling quanta.
func (cpu *Cpu) Start() {
	cpu.Resume()
}

// Resume continues a paused CPU.
func (cpu *Cpu) Resume() {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()

	if cpu.state != STATE_PAUSED {
		return
	}

	if cpu.Verbose {
		cpu.Logger.Debug("cpu: resume")
	}
	cpu.state = STATE_RUNNING
	cpu.schedule()
}

// Pause stops scheduling after the current quantum.
func (cpu *Cpu) Pause() {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()

	if cpu.state.Final() {
		return
	}

	if cpu.Verbose {
		cpu.Logger.Debug("cpu: pause")
	}
	cpu.state = STATE_PAUSED
}

// Terminate stops the CPU permanently.
func (cpu *Cpu) Terminate() {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()

	if cpu.state.Final() {
		return
	}
	cpu.terminate()
}

// Crash stops the CPU permanently with a diagnostic dump, as if the current
// instruction had failed with err.
func (cpu *Cpu) Crash(err error) {
	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()

	if cpu.state.Final() {
		return
	}
	cpu.crash(&ErrCrash{Column: cpu.PcColumn, Row: cpu.PcRow, Err: err})
}

// Interrupt requests an implicit call to the address v resolves to. It is
// safe to call from any goroutine.
func (cpu *Cpu) Interrupt(v workbook.Value) {
	cpu.Irq.Raise(v)
}

func (cpu *Cpu) schedule() {
	if cpu.scheduled.CompareAndSwap(false, true) {
		cpu.scheduler.Schedule(cpu.quantum)
	}
}

// quantum runs one time-boxed slice of execution, then polls the devices
// and schedules the next slice.
func (cpu *Cpu) quantum() {
	cpu.scheduled.Store(false)

	cpu.mutex.Lock()
	defer cpu.mutex.Unlock()

	if cpu.state != STATE_RUNNING && cpu.state != STATE_IDLE {
		return
	}
	cpu.state = STATE_RUNNING

	err := cpu.run()
	if err != nil {
		cpu.crash(err)
		return
	}

	if cpu.state.Final() {
		return
	}

	cpu.Book.Poll()

	if cpu.state != STATE_PAUSED {
		cpu.schedule()
	}
}

// run dispatches at most one interrupt, then steps until the budget is
// spent, the program sleeps or stops, or another interrupt can be taken.
// At least one instruction runs per quantum.
func (cpu *Cpu) run() (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = &ErrCrash{Column: cpu.PcColumn, Row: cpu.PcRow, Err: &ErrPanic{Value: r}}
		}
	}()

	start := cpu.clock()

	if !cpu.Stack.Interrupted() {
		if v, ok := cpu.Irq.Pop(); ok {
			err = cpu.dispatch(v)
			if err != nil {
				return
			}
		}
	}

	for n := 0; cpu.state == STATE_RUNNING; n++ {
		if n > 0 {
			if cpu.clock().Sub(start) >= cpu.budget {
				break
			}
			if cpu.Irq.Len() > 0 && !cpu.Stack.Interrupted() {
				break
			}
		}

		err = cpu.Step()
		if err != nil {
			return
		}
	}

	return
}

// dispatch performs the implicit call of an interrupt.
func (cpu *Cpu) dispatch(v workbook.Value) (err error) {
	defer func() {
		if err != nil {
			err = &ErrCrash{Column: cpu.PcColumn, Row: cpu.PcRow, Opcode: "interrupt", Err: err}
		}
	}()

	target, err := cpu.Resolve(1, 1, v)
	if err != nil {
		return
	}
	ref, err := reference(target)
	if err != nil {
		return
	}

	if cpu.Verbose {
		cpu.Logger.Debug("cpu: interrupt", "pc", fmt.Sprintf("R%dC%d", cpu.PcRow, cpu.PcColumn), "target", ref.String())
	}

	_, err = cpu.call(ref, true)
	return
}

// Step executes the instruction at the program counter.
func (cpu *Cpu) Step() (err error) {
	column, row := cpu.PcColumn, cpu.PcRow
	cpu.publish()

	op, ok, err := ParseOpcode(cpu.Data.Cell(column, row))
	if err != nil {
		err = &ErrCrash{Column: column, Row: row, Err: errors.Join(ErrOpcode, err)}
		return
	}
	if !ok {
		cpu.terminate()
		return
	}

	defer func() {
		if err != nil {
			err = &ErrCrash{Column: column, Row: row, Opcode: op.String(), Err: err}
		}
	}()

	info := opcodeTable[op]
	if info.handler == nil {
		err = errors.Join(ErrOpcode, ErrOpcodeUnimplemented(op))
		return
	}

	var args []workbook.Value
	if info.arity > 0 {
		var params *workbook.Range
		params, err = cpu.Data.Copy(workbook.At(column+1, row, info.arity, 1), cpu.Resolve)
		if err != nil {
			return
		}
		args = params.Values()
	}

	rec := Record{Column: column, Row: row, Opcode: op, Operands: args}
	cpu.History.Record(rec)
	if cpu.Verbose {
		cpu.Logger.Debug("cpu: exec", "instruction", rec.String())
	}

	jumped, err := info.handler(cpu, args)
	if err != nil {
		return
	}

	if !jumped {
		cpu.PcRow = row + 1
	}

	return
}

// terminate stops the machine normally.
func (cpu *Cpu) terminate() {
	if cpu.state.Final() {
		return
	}
	cpu.state = STATE_TERMINATED
	close(cpu.done)

	cpu.Logger.Info(fmt.Sprintf("Exited at R%dC%d", cpu.PcRow, cpu.PcColumn))
	if cpu.Verbose {
		fmt.Fprintln(cpu.Dump, "Data sheet dump follows:")
		cpu.Data.Print(cpu.Dump)
	}
}

// crash stops the machine on a fault.
func (cpu *Cpu) crash(err error) {
	if cpu.state.Final() {
		return
	}
	cpu.state = STATE_CRASHED
	cpu.err = err
	close(cpu.done)

	cpu.Logger.Error("cpu: crash", "error", err, "pc", fmt.Sprintf("R%dC%d", cpu.PcRow, cpu.PcColumn))
	if !cpu.Verbose {
		return
	}

	fmt.Fprintf(cpu.Dump, "Crash! Last %d operations:\n", cpu.History.Len())
	for rec := range cpu.History.All() {
		fmt.Fprintln(cpu.Dump, rec.String())
	}
	fmt.Fprint(cpu.Dump, cpu.String())
	fmt.Fprintln(cpu.Dump, "CPU memory dump follows:")
	cpu.Registers.Print(cpu.Dump)
	fmt.Fprintln(cpu.Dump, "Data sheet dump follows:")
	cpu.Data.Print(cpu.Dump)
}
