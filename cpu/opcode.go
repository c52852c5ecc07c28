package cpu

import (
	"math"
	"strings"

	"github.com/ezrec/csvm/workbook"
)

// Opcode is an instruction. Numeric opcode cells index this table.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_NOOP    = Opcode(0)  // noop
	OP_CLEAR   = Opcode(1)  // clear
	OP_COPY    = Opcode(2)  // copy
	OP_ADD     = Opcode(3)  // add
	OP_SUB     = Opcode(4)  // sub
	OP_MULT    = Opcode(5)  // mult
	OP_DIV     = Opcode(6)  // div
	OP_MOD     = Opcode(7)  // mod
	OP_AND     = Opcode(8)  // and
	OP_OR      = Opcode(9)  // or
	OP_NOT     = Opcode(10) // not
	OP_XOR     = Opcode(11) // xor
	OP_JUMP    = Opcode(12) // jump
	OP_IF      = Opcode(13) // if
	OP_EQ      = Opcode(14) // eq
	OP_GT      = Opcode(15) // gt
	OP_CALL    = Opcode(16) // call
	OP_RETURN  = Opcode(17) // return
	OP_POINTER = Opcode(18) // pointer
	OP_ADDRESS = Opcode(19) // address
	OP_LOCAL   = Opcode(20) // local
	OP_DEFINE  = Opcode(21) // define
	OP_CONCAT  = Opcode(22) // concat
	OP_SLEEP   = Opcode(23) // sleep
	OP_EXIT    = Opcode(24) // exit
	OP_SIN     = Opcode(25) // sin
	OP_COS     = Opcode(26) // cos
	OP_TAN     = Opcode(27) // tan
	OP_DOT     = Opcode(28) // dot
	OP_NORMAL  = Opcode(29) // normal
	OP_MAT     = Opcode(30) // mat
	OP_POW     = Opcode(31) // pow
	OP_ABS     = Opcode(32) // abs
	OP_RAND    = Opcode(33) // rand
	OP_MIN     = Opcode(34) // min
	OP_MAX     = Opcode(35) // max
	OP_CLAMP   = Opcode(36) // clamp
	OP_FLOOR   = Opcode(37) // floor
	OP_CEIL    = Opcode(38) // ceil
	OP_ELSE    = Opcode(39) // else

	opcodeCount = 40
)

// handler executes one instruction on resolved operands. A handler that
// moves the program counter itself reports jumped.
type handler func(cpu *Cpu, args []workbook.Value) (jumped bool, err error)

type opcodeInfo struct {
	arity   int
	handler handler // nil for reserved opcodes
}

var opcodeTable [opcodeCount]opcodeInfo

var opcodeName = map[string]Opcode{}

func init() {
	opcodeTable = [opcodeCount]opcodeInfo{
		OP_NOOP:    {0, (*Cpu).opNoop},
		OP_CLEAR:   {1, (*Cpu).opClear},
		OP_COPY:    {2, (*Cpu).opCopy},
		OP_ADD:     {2, binaryOp(func(a, b float64) float64 { return a + b })},
		OP_SUB:     {2, binaryOp(func(a, b float64) float64 { return a - b })},
		OP_MULT:    {2, binaryOp(func(a, b float64) float64 { return a * b })},
		OP_DIV:     {2, binaryOp(func(a, b float64) float64 { return a / b })},
		OP_MOD:     {2, binaryOp(math.Mod)},
		OP_AND:     {2, binaryOp(func(a, b float64) float64 { return float64(toInt32(a) & toInt32(b)) })},
		OP_OR:      {2, binaryOp(func(a, b float64) float64 { return float64(toInt32(a) | toInt32(b)) })},
		OP_NOT:     {1, unaryOp(func(a float64) float64 { return float64(^toInt32(a)) })},
		OP_XOR:     {2, binaryOp(func(a, b float64) float64 { return float64(toInt32(a) ^ toInt32(b)) })},
		OP_JUMP:    {1, (*Cpu).opJump},
		OP_IF:      {2, (*Cpu).opIf},
		OP_EQ:      {3, (*Cpu).opEq},
		OP_GT:      {3, (*Cpu).opGt},
		OP_CALL:    {1, (*Cpu).opCall},
		OP_RETURN:  {0, (*Cpu).opReturn},
		OP_POINTER: {2, (*Cpu).opPointer},
		OP_ADDRESS: {2, (*Cpu).opAddress},
		OP_LOCAL:   {2, (*Cpu).opLocal},
		OP_DEFINE:  {2, (*Cpu).opDefine},
		OP_CONCAT:  {2, nil},
		OP_SLEEP:   {0, (*Cpu).opSleep},
		OP_EXIT:    {0, (*Cpu).opExit},
		OP_SIN:     {1, unaryOp(math.Sin)},
		OP_COS:     {1, unaryOp(math.Cos)},
		OP_TAN:     {1, unaryOp(math.Tan)},
		OP_DOT:     {2, nil},
		OP_NORMAL:  {1, nil},
		OP_MAT:     {3, nil},
		OP_POW:     {2, binaryOp(math.Pow)},
		OP_ABS:     {1, unaryOp(math.Abs)},
		OP_RAND:    {1, (*Cpu).opRand},
		OP_MIN:     {1, nil},
		OP_MAX:     {1, nil},
		OP_CLAMP:   {3, nil},
		OP_FLOOR:   {1, unaryOp(math.Floor)},
		OP_CEIL:    {1, unaryOp(math.Ceil)},
		OP_ELSE:    {2, (*Cpu).opElse},
	}

	for op := range Opcode(opcodeCount) {
		opcodeName[op.String()] = op
	}
}

// Arity is the number of operand cells following the opcode.
func (op Opcode) Arity() int {
	if !op.Valid() {
		return 0
	}
	return opcodeTable[op].arity
}

// Valid reports whether op is in the instruction table.
func (op Opcode) Valid() bool {
	return op >= 0 && op < opcodeCount
}

// Implemented is false for reserved instructions.
func (op Opcode) Implemented() bool {
	return op.Valid() && opcodeTable[op].handler != nil
}

// ParseOpcode decodes an opcode cell. An empty or blank cell decodes with
// ok false, meaning the program has ended.
func ParseOpcode(v workbook.Value) (op Opcode, ok bool, err error) {
	if v.IsEmpty() {
		return
	}

	if n, isNum := v.Number(); isNum {
		if n != math.Trunc(n) || n < 0 || n >= opcodeCount {
			err = ErrOpcodeUnknown(v.String())
			return
		}
		op, ok = Opcode(n), true
		return
	}

	text, isText := v.Text()
	if !isText {
		err = ErrOpcodeUnknown(v.String())
		return
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return
	}

	op, ok = opcodeName[text]
	if !ok {
		err = ErrOpcodeUnknown(text)
	}
	return
}

// toInt32 converts like a 32-bit bitwise operand: truncated, wrapped modulo
// 2^32, NaN and infinities as 0.
func toInt32(n float64) int32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int32(uint32(int64(math.Mod(math.Trunc(n), 1<<32))))
}
