package cpu

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/csvm/workbook"
)

// queue is a Scheduler that runs quanta only when asked.
type queue struct {
	pending []func()
}

func (q *queue) Schedule(quantum func()) {
	q.pending = append(q.pending, quantum)
}

func (q *queue) next() bool {
	if len(q.pending) == 0 {
		return false
	}
	quantum := q.pending[0]
	q.pending = q.pending[1:]
	quantum()
	return true
}

// fakeClock advances by step on every reading.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (fc *fakeClock) Now() time.Time {
	fc.now = fc.now.Add(fc.step)
	return fc.now
}

type harness struct {
	*Cpu
	queue *queue
	clock *fakeClock
	dump  *bytes.Buffer
}

// newHarness builds a CPU whose quanta run one instruction each when step
// exceeds the budget, or until the program stops when step is zero.
func newHarness(t *testing.T, step time.Duration, grid ...[]workbook.Value) (h *harness) {
	prog, err := NewProgram(grid)
	if err != nil {
		t.Fatal(err)
	}

	h = &harness{
		queue: &queue{},
		clock: &fakeClock{now: time.Unix(1000, 0), step: step},
		dump:  &bytes.Buffer{},
	}

	h.Cpu, err = New(prog, Options{
		Logger:    slog.New(slog.DiscardHandler),
		Dump:      h.dump,
		Clock:     h.clock.Now,
		Scheduler: h.queue,
		Seed:      1,
	})
	if err != nil {
		t.Fatal(err)
	}

	return
}

// runAll runs quanta until none are scheduled.
func (h *harness) runAll(limit int) (quanta int) {
	for quanta < limit && h.queue.next() {
		quanta++
	}
	return
}

func row(values ...any) (out []workbook.Value) {
	for _, v := range values {
		switch v := v.(type) {
		case nil:
			out = append(out, workbook.Empty())
		case int:
			out = append(out, workbook.Num(float64(v)))
		case float64:
			out = append(out, workbook.Num(v))
		case bool:
			out = append(out, workbook.Bool(v))
		case string:
			out = append(out, workbook.Str(v))
		}
	}
	return
}

func TestScenarioCopyToRegisters(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 6),
		row("copy", "=R[0]C[2]:R[0]C[5]", "=cpu!A2:C2", "a", "b", "c"),
	)

	h.Start()
	assert.Equal(1, h.runAll(10))

	assert.Equal(str("a"), h.Registers.Cell(1, 2))
	assert.Equal(str("b"), h.Registers.Cell(2, 2))
	assert.Equal(str("c"), h.Registers.Cell(3, 2))
	assert.Equal(STATE_TERMINATED, h.State())
	assert.NoError(h.Err())
}

func TestScenarioExit(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 1),
		row("exit"),
		row("noop"),
	)

	h.Start()
	h.runAll(10)

	assert.Equal(STATE_TERMINATED, h.State())
	assert.Equal(1, h.PcColumn)
	assert.Equal(2, h.PcRow)
	assert.Equal(1, h.History.Len())

	select {
	case <-h.Done():
	default:
		assert.Fail("done not closed")
	}
}

func TestScenarioAdd(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row("add", "=R4C1:R4C3", 10),
		row("exit"),
		row(1, 2, 3),
	)

	h.Start()
	h.runAll(10)

	assert.Equal(STATE_TERMINATED, h.State())
	assert.Equal([]workbook.Value{num(11), num(12), num(13)}, h.Data.Grid()[3])
}

func TestScenarioCrashHistory(t *testing.T) {
	assert := assert.New(t)

	grid := [][]workbook.Value{row("csvm", 1, 2)}
	for range 12 {
		grid = append(grid, row("noop"))
	}
	grid = append(grid, row("bogus"))

	h := newHarness(t, 0, grid...)
	h.Verbose = true

	h.Start()
	h.runAll(10)

	assert.Equal(STATE_CRASHED, h.State())

	err := h.Err()
	assert.ErrorIs(err, ErrOpcode)
	assert.ErrorIs(err, ErrOpcodeUnknown("bogus"))

	var crash *ErrCrash
	if assert.True(errors.As(err, &crash)) {
		assert.Equal(1, crash.Column)
		assert.Equal(14, crash.Row)
	}

	assert.Equal(HISTORY_LENGTH, h.History.Len())
	var rows []int
	for rec := range h.History.All() {
		assert.Equal(OP_NOOP, rec.Opcode)
		rows = append(rows, rec.Row)
	}
	assert.Equal([]int{4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, rows)
	assert.Contains(h.dump.String(), "Crash! Last 10 operations:")
	assert.Contains(h.dump.String(), "R13C1 noop")
}

func TestStep_Jump(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 2),
		row("jump", "=R4C2"),
		row("exit"),
		row("exit", "noop"),
	)

	assert.NoError(h.Step())
	assert.Equal(2, h.PcColumn)
	assert.Equal(4, h.PcRow)

	assert.NoError(h.Step())
	assert.Equal(2, h.PcColumn)
	assert.Equal(5, h.PcRow)
	assert.Equal(STATE_PAUSED, h.State())
}

func TestStep_JumpNotExecutable(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 2),
		row("jump", "=cpu!A2"),
	)

	err := h.Step()
	assert.ErrorIs(err, workbook.ErrAddress)
	assert.ErrorIs(err, ErrNotExecutable)
}

func TestStep_CallReturn(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 2),
		row("call", "=R5C1"),
		row("exit"),
		row(),
		row("call", "=R8C1"),
		row("return"),
		row(),
		row("return"),
	)

	for _, want := range []int{5, 8, 6, 3} {
		assert.NoError(h.Step())
		assert.Equal(1, h.PcColumn)
		assert.Equal(want, h.PcRow)
	}
	assert.True(h.Stack.Empty())

	assert.NoError(h.Step())
	assert.Equal(STATE_TERMINATED, h.State())
	assert.Equal(3, h.PcRow)
}

func TestStep_ReturnEmpty(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 1),
		row("return"),
	)

	h.Start()
	h.runAll(10)

	assert.Equal(STATE_CRASHED, h.State())
	assert.ErrorIs(h.Err(), ErrStack)
	assert.ErrorIs(h.Err(), ErrStackEmpty)
}

func TestStep_Reserved(t *testing.T) {
	assert := assert.New(t)

	for _, op := range []Opcode{OP_CONCAT, OP_DOT, OP_NORMAL, OP_MAT, OP_MIN, OP_MAX, OP_CLAMP} {
		h := newHarness(t, 0,
			row("csvm", 1, 4),
			row(op.String(), "=R3C1", "=R3C2", "=R3C3"),
		)

		err := h.Step()
		assert.ErrorIs(err, ErrOpcode, op.String())
		assert.ErrorIs(err, ErrOpcodeUnimplemented(op), op.String())
		assert.Equal(0, h.History.Len(), op.String())
	}
}

func TestStep_Arity(t *testing.T) {
	assert := assert.New(t)

	for op := range Opcode(opcodeCount) {
		if !op.Implemented() || op == OP_EXIT || op == OP_RETURN || op == OP_DEFINE {
			continue
		}

		for _, shape := range []string{"literal", "reference"} {
			operand := "=R4C1"
			if shape == "literal" {
				operand = "7"
			}

			cells := []any{op.String()}
			for n := range op.Arity() {
				if n == op.Arity()-1 || shape == "reference" {
					cells = append(cells, "=R4C1")
				} else {
					cells = append(cells, operand)
				}
			}
			cells = append(cells, "=R4C2", "=R4C3", "=R4C4")

			h := newHarness(t, 0,
				row("csvm", 1, 6),
				row(cells...),
				row("exit"),
				row(1, 2, 3, 4),
			)

			h.Step()
			if assert.Equal(1, h.History.Len(), op.String()) {
				for rec := range h.History.All() {
					assert.Equal(op.Arity(), len(rec.Operands), op.String())
				}
			}
		}
	}
}

func TestStep_Numeric(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row(float64(OP_ADD), "=R6C1", 5),
		row("sub", "=R6C1:R6C2", "=R7C1:R7C2"),
		row("not", "=R6C3"),
		row("exit"),
		row(1, true, 0),
		row(0.5, "x"),
	)

	h.Start()
	h.runAll(10)

	assert.Equal(STATE_TERMINATED, h.State())
	assert.Equal(num(5.5), h.Data.Cell(1, 6))
	assert.Equal(num(0), h.Data.Cell(2, 6))
	assert.Equal(num(-1), h.Data.Cell(3, 6))
}

func TestStep_Math(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row("div", "=R12C1", 4),
		row("mod", "=R12C2", 4),
		row("mult", "=R12C3", 4),
		row("and", "=R13C1", 6),
		row("or", "=R13C2", 6),
		row("xor", "=R13C3", 6),
		row("pow", "=R14C1", 3),
		row("abs", "=R14C2"),
		row("floor", "=R14C3:R15C3"),
		row("exit"),
		row(10, 10, 10),
		row(3, 3, 3),
		row(2, -4, 1.5),
		row("sin", "cos", -1.5),
	)

	h.Start()
	h.runAll(10)

	assert.Equal(STATE_TERMINATED, h.State())
	assert.Equal(row(2.5, 2, 40), h.Data.Grid()[11])
	assert.Equal(num(2), h.Data.Cell(1, 13))
	assert.Equal(num(7), h.Data.Cell(2, 13))
	assert.Equal(num(5), h.Data.Cell(3, 13))
	assert.Equal(num(8), h.Data.Cell(1, 14))
	assert.Equal(num(4), h.Data.Cell(2, 14))
	assert.Equal(num(1), h.Data.Cell(3, 14))
	assert.Equal(num(-2), h.Data.Cell(3, 15))
}

func TestStep_Trig(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row("sin", "=R6C1"),
		row("cos", "=R6C2"),
		row("tan", "=R6C3"),
		row("exit"),
		row(math.Pi/2, 0, 0),
	)

	h.Start()
	h.runAll(10)

	v, _ := h.Data.Cell(1, 6).Number()
	assert.InDelta(1, v, 1e-9)
	assert.Equal(num(1), h.Data.Cell(2, 6))
	assert.Equal(num(0), h.Data.Cell(3, 6))
}

func TestStep_Branches(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		instr []workbook.Value
		taken bool
	}){
		{"if_true", row("if", true, "=R9C1"), true},
		{"if_false", row("if", 0, "=R9C1"), false},
		{"if_ref", row("if", "=R5C1", "=R9C1"), true},
		{"else_true", row("else", "x", "=R9C1"), false},
		{"else_false", row("else", "", "=R9C1"), true},
		{"eq_loose", row("eq", 1, "=R5C1", "=R9C1"), true},
		{"eq_text", row("eq", "a", "b", "=R9C1"), false},
		{"gt_number", row("gt", "=R5C2", "=R5C1", "=R9C1"), true},
		{"gt_equal", row("gt", 1, "=R5C1", "=R9C1"), false},
	}

	for _, entry := range table {
		h := newHarness(t, 0,
			row("csvm", 1, 4),
			entry.instr,
			row("exit"),
			row(),
			row(true, 2),
		)

		assert.NoError(h.Step(), entry.name)
		if entry.taken {
			assert.Equal(9, h.PcRow, entry.name)
		} else {
			assert.Equal(3, h.PcRow, entry.name)
		}
	}
}

func TestStep_BranchTargetRequired(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row("if", false, 9),
	)

	err := h.Step()
	assert.ErrorIs(err, workbook.ErrAddress)

	var expected *ErrExpectedReference
	assert.True(errors.As(err, &expected))
}

func TestStep_Addressing(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 5),
		row("pointer", "=display!B3:C7", "=R9C1:R9C5"),
		row("address", "=R9C1:R9C5", "=R10C1"),
		row("local", "=R9C2:R9C3", "=R10C2"),
		row("define", "screen", "=display!A2"),
		row("copy", 7, "=screen"),
		row("exit"),
		row(),
		row(),
	)

	display := workbook.NewSheet("display", 4, 8)
	h.Book.Add(display)

	h.Start()
	h.runAll(10)

	assert.Equal(STATE_TERMINATED, h.State())
	assert.Equal(row("display", 2, 3, 2, 5), h.Data.Grid()[8])
	assert.Equal(str("=display!R3C2:R7C3"), h.Data.Cell(1, 10))
	assert.Equal(str("=R3C2"), h.Data.Cell(2, 10))
	assert.Equal(num(7), display.Cell(1, 2))
}

func TestStep_Protected(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row("copy", 99, "=cpu!A1:B1"),
		row("copy", 0, "=cpu!E1"),
		row("exit"),
	)

	assert.NoError(h.Step())
	assert.Equal(num(3), h.Registers.Cell(1, 1))
	assert.Equal(num(4), h.Registers.Cell(2, 1))

	assert.NoError(h.Step())
	assert.Equal(num(0), h.Registers.Cell(5, 1))
}

func TestStep_Rand(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row("rand", "=R4C1:R4C3"),
		row("exit"),
	)

	assert.NoError(h.Step())
	for column := 1; column <= 3; column++ {
		v, ok := h.Data.Cell(column, 4).Number()
		assert.True(ok)
		assert.GreaterOrEqual(v, 0.0)
		assert.Less(v, 1.0)
	}
}

func TestQuantum_Sleep(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 2),
		row("sleep"),
		row("sleep"),
		row("exit"),
	)

	h.Start()
	assert.True(h.queue.next())
	assert.Equal(STATE_IDLE, h.State())
	assert.Equal(3, h.PcRow)

	assert.True(h.queue.next())
	assert.Equal(4, h.PcRow)

	assert.True(h.queue.next())
	assert.Equal(STATE_TERMINATED, h.State())
	assert.False(h.queue.next())
}

func TestQuantum_Budget(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 10*time.Millisecond,
		row("csvm", 1, 2),
		row("noop"),
		row("noop"),
		row("exit"),
	)

	h.Start()
	assert.Equal(3, h.runAll(10))
	assert.Equal(STATE_TERMINATED, h.State())
}

func TestQuantum_PauseResume(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 10*time.Millisecond,
		row("csvm", 1, 2),
		row("noop"),
		row("noop"),
		row("exit"),
	)

	assert.Equal(STATE_PAUSED, h.State())
	assert.False(h.queue.next())

	h.Start()
	assert.True(h.queue.next())
	assert.Equal(3, h.PcRow)

	h.Pause()
	assert.True(h.queue.next())
	assert.Equal(3, h.PcRow)
	assert.False(h.queue.next())

	h.Resume()
	h.Resume()
	assert.Equal(1, len(h.queue.pending))
	h.runAll(10)
	assert.Equal(STATE_TERMINATED, h.State())

	h.Resume()
	assert.False(h.queue.next())
}

func TestQuantum_Interrupt(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 10*time.Millisecond,
		row("csvm", 1, 3),
		row("add", "=R10C1", 1),
		row("add", "=R10C2", 1),
		row("exit"),
		row(),
		row("add", "=R10C3", 1),
		row("return"),
		row(),
		row(),
		row(0, 0, 0),
	)

	h.Start()
	assert.True(h.queue.next())
	assert.Equal(3, h.PcRow)

	h.Interrupt(str("=R6C1"))

	// Dispatch and the first handler instruction.
	assert.True(h.queue.next())
	assert.Equal(7, h.PcRow)
	assert.True(h.Stack.Interrupted())

	// The handler returns to the interrupted instruction.
	assert.True(h.queue.next())
	assert.Equal(3, h.PcRow)
	assert.False(h.Stack.Interrupted())

	h.runAll(10)
	assert.Equal(STATE_TERMINATED, h.State())
	assert.Equal(row(1, 1, 1), h.Data.Grid()[9])
}

func TestQuantum_InterruptNotNested(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 3),
		row("exit"),
		row(),
		row(),
		row(),
		row("add", "=R10C3", 1),
		row("return"),
		row(),
		row(),
		row(0, 0, 0),
	)

	h.Interrupt(str("=R6C1"))
	h.Interrupt(str("=R6C1"))
	h.Start()

	// First quantum: dispatch, handler, return; the pending interrupt ends it.
	assert.True(h.queue.next())
	assert.Equal(2, h.PcRow)
	assert.Equal(1, h.Irq.Len())
	assert.Equal(num(1), h.Data.Cell(3, 10))

	h.runAll(10)
	assert.Equal(num(2), h.Data.Cell(3, 10))
	assert.Equal(STATE_TERMINATED, h.State())
}

func TestQuantum_InterruptBadTarget(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 1),
		row("exit"),
	)

	h.Interrupt(num(5))
	h.Start()
	h.runAll(10)

	assert.Equal(STATE_CRASHED, h.State())
	assert.ErrorIs(h.Err(), workbook.ErrAddress)
}

func TestCrash_Killed(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 2),
		row("jump", "=R2C1"),
	)

	h.Start()
	h.Crash(ErrKilled)
	assert.True(h.queue.next())
	assert.False(h.queue.next())

	assert.Equal(STATE_CRASHED, h.State())
	assert.ErrorIs(h.Err(), ErrKilled)

	h.Terminate()
	assert.Equal(STATE_CRASHED, h.State())
}

func TestTerminate(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 2),
		row("jump", "=R2C1"),
	)

	h.Start()
	assert.NoError(h.Close())
	assert.Equal(STATE_TERMINATED, h.State())
	assert.NoError(h.Err())
	assert.True(h.queue.next())
	assert.False(h.queue.next())
}

func TestCpu_Registers(t *testing.T) {
	assert := assert.New(t)

	h := newHarness(t, 0,
		row("csvm", 1, 2),
		row("noop"),
		row("exit"),
	)

	assert.Equal(num(2), h.Registers.Cell(REG_COLUMNS, 1))
	assert.Equal(num(3), h.Registers.Cell(REG_ROWS, 1))
	assert.Equal(num(1), h.Registers.Cell(REG_PC_COLUMN, 1))
	assert.Equal(num(2), h.Registers.Cell(REG_PC_ROW, 1))

	assert.NoError(h.Step())
	assert.NoError(h.Step())
	assert.Equal(num(3), h.Registers.Cell(REG_PC_ROW, 1))

	clock, ok := h.Registers.Cell(REG_CLOCK, 1).Number()
	assert.True(ok)
	assert.Equal(float64(time.Unix(1000, 0).UnixMilli()), clock)

	text := h.String()
	assert.Contains(text, "   pc: R3C1")
	assert.Contains(text, "state: terminated")
	assert.Contains(text, "stack: ----")

	defines := map[string]string{}
	for key, value := range h.Defines() {
		defines[key] = value
	}
	assert.Equal("cpu!D1", defines["PC_ROW"])
}
