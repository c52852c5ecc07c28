// Package cpu implements the execution core of the CSVM.
//
// A program is a grid of cells loaded into the "data" sheet; row 1 carries
// the metadata [csvm, version, columns] and every later row is one
// instruction: an opcode cell followed by as many operand cells as the
// opcode takes. Operands are resolved before execution: text starting with
// '=' or '*' is the address it names, text starting with '&' is the value
// stored at that address.
//
// The "cpu" sheet publishes the registers on its protected first row:
// program columns, program rows, program counter column and row, and the
// wall clock in milliseconds.
//
// Execution proceeds in quanta of a few milliseconds, each scheduled through
// a host supplied Scheduler. Interrupts raised by devices are dispatched as
// implicit calls at quantum boundaries.
package cpu
