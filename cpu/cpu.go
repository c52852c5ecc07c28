package cpu

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ezrec/csvm/workbook"
)

const (
	SHEET_CPU  = "cpu"  // CPU register sheet.
	SHEET_DATA = "data" // Program memory.

	CPU_COLUMNS = 8
	CPU_ROWS    = 4

	BUDGET = 4 * time.Millisecond // Default quantum length.
)

// CPU register cells, on row 1 of the cpu sheet.
const (
	REG_COLUMNS   = 1 // Program columns.
	REG_ROWS      = 2 // Program rows.
	REG_PC_COLUMN = 3 // Program counter column.
	REG_PC_ROW    = 4 // Program counter row.
	REG_CLOCK     = 5 // Wall clock, Unix milliseconds.
)

var _cpu_defines = map[string]string{
	"SHEET_CPU":         SHEET_CPU,
	"SHEET_DATA":        SHEET_DATA,
	"PC_COLUMN":         "cpu!C1",
	"PC_ROW":            "cpu!D1",
	"CLOCK":             "cpu!E1",
	"STACK_LIMIT":       fmt.Sprint(STACK_LIMIT),
	"INDIRECTION_LIMIT": fmt.Sprint(INDIRECTION_LIMIT),
}

// Named ranges every program starts with.
var _cpu_names = map[string]string{
	"stdout": "stdout!A1",
	"pcc":    "cpu!C1",
	"pcr":    "cpu!D1",
	"clock":  "cpu!E1",
}

// Scheduler runs quanta on behalf of the CPU. Schedule must not run the
// quantum synchronously.
type Scheduler interface {
	Schedule(quantum func())
}

// SchedulerFunc adapts a function to a Scheduler.
type SchedulerFunc func(quantum func())

func (fn SchedulerFunc) Schedule(quantum func()) {
	fn(quantum)
}

// Options configures a Cpu. The zero value is usable.
type Options struct {
	Verbose       bool              // Trace instructions and dump state on exit.
	Logger        *slog.Logger      // slog.Default() if nil.
	Dump          io.Writer         // Diagnostic dumps; os.Stderr if nil.
	Budget        time.Duration     // Quantum length; BUDGET if zero.
	HistoryLength int               // Crash history; HISTORY_LENGTH if zero.
	Clock         func() time.Time  // time.Now if nil.
	Scheduler     Scheduler         // One goroutine per quantum if nil.
	Devices       []workbook.Device // Memory-mapped peripherals.
	Seed          uint64            // Seed for rand; random if zero.
}

// Cpu is the execution core: registers, program memory, call stack,
// interrupt queue and the quantum loop.
type Cpu struct {
	Verbose bool         // Set to enable verbose logging.
	Logger  *slog.Logger // Log sink.
	Dump    io.Writer    // Diagnostic dump sink.

	Book      *workbook.Workbook // Every sheet, by name.
	Registers *workbook.Sheet    // CPU register sheet.
	Data      *workbook.Sheet    // Program memory.

	PcColumn int                           // Program counter column.
	PcRow    int                           // Program counter row.
	Stack    Stack                         // Call stack.
	History  History                       // Recently executed instructions.
	Irq      Irq                           // Pending interrupts.
	Names    map[string]workbook.Reference // Named ranges.

	budget    time.Duration
	clock     func() time.Time
	scheduler Scheduler
	rand      *rand.Rand

	mutex     sync.Mutex
	state     State
	err       error
	done      chan struct{}
	scheduled atomic.Bool
}

// New builds a paused CPU around a program.
func New(prog *Program, opts Options) (cpu *Cpu, err error) {
	cpu = &Cpu{
		Verbose:   opts.Verbose,
		Logger:    opts.Logger,
		Dump:      opts.Dump,
		Registers: workbook.NewSheet(SHEET_CPU, CPU_COLUMNS, CPU_ROWS),
		Data:      prog.Sheet(),
		PcColumn:  1,
		PcRow:     2,
		History:   History{Length: opts.HistoryLength},
		Names:     map[string]workbook.Reference{},
		budget:    opts.Budget,
		clock:     opts.Clock,
		scheduler: opts.Scheduler,
		state:     STATE_PAUSED,
		done:      make(chan struct{}),
	}

	if cpu.Logger == nil {
		cpu.Logger = slog.Default()
	}
	if cpu.Dump == nil {
		cpu.Dump = os.Stderr
	}
	if cpu.budget <= 0 {
		cpu.budget = BUDGET
	}
	if cpu.clock == nil {
		cpu.clock = time.Now
	}
	if cpu.scheduler == nil {
		cpu.scheduler = SchedulerFunc(func(quantum func()) { go quantum() })
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	cpu.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	for name, address := range _cpu_names {
		var ref workbook.Reference
		ref, err = workbook.Parse(address)
		if err != nil {
			return
		}
		cpu.Names[name] = ref
	}

	cpu.publish()
	cpu.Registers.SetProtected(workbook.At(1, 1, CPU_COLUMNS, 1), true)

	cpu.Book = workbook.New(SHEET_DATA, opts.Devices...)
	cpu.Book.Add(cpu.Registers)
	cpu.Book.Add(cpu.Data)

	if cpu.Verbose {
		cpu.Logger.Info("cpu: program loaded", "columns", cpu.Data.Columns(), "rows", cpu.Data.Rows())
	}

	return
}

// Defines returns the CPU constants visible to cell expressions.
func Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Defines returns the CPU constants visible to cell expressions.
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return Defines()
}

// publish writes the register row: program geometry, PC and clock.
func (cpu *Cpu) publish() {
	regs := cpu.Registers
	regs.Poke(REG_COLUMNS, 1, workbook.Num(float64(cpu.Data.Columns())))
	regs.Poke(REG_ROWS, 1, workbook.Num(float64(cpu.Data.Rows())))
	regs.Poke(REG_PC_COLUMN, 1, workbook.Num(float64(cpu.PcColumn)))
	regs.Poke(REG_PC_ROW, 1, workbook.Num(float64(cpu.PcRow)))
	regs.Poke(REG_CLOCK, 1, workbook.Num(float64(cpu.clock().UnixMilli())))
}

// Close terminates the CPU.
func (cpu *Cpu) Close() (err error) {
	cpu.Terminate()
	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc",
		"state",
		"stack",
		"depth",
		"irq",
		"clock",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("R%dC%d", cpu.PcRow, cpu.PcColumn)
		case "state":
			strval = cpu.state.String()
		case "stack":
			frame, ok := cpu.Stack.Peek()
			if ok {
				strval = fmt.Sprintf("R%dC%d", frame.Row, frame.Column)
				if frame.Interrupt {
					strval += " (irq)"
				}
			} else {
				strval = "----"
			}
		case "depth":
			strval = fmt.Sprint(len(cpu.Stack.Data))
		case "irq":
			strval = fmt.Sprint(cpu.Irq.Len())
		case "clock":
			strval = cpu.Registers.Cell(REG_CLOCK, 1).String()
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}
