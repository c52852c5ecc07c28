package cpu

import (
	"fmt"
	"iter"
	"strings"

	"github.com/ezrec/csvm/workbook"
)

const (
	HISTORY_LENGTH = 10 // Instructions kept for crash dumps.
)

// Record is one executed instruction with its resolved operands.
type Record struct {
	Column   int
	Row      int
	Opcode   Opcode
	Operands []workbook.Value
}

func (rec Record) String() string {
	words := []string{fmt.Sprintf("R%dC%d", rec.Row, rec.Column), rec.Opcode.String()}
	for _, v := range rec.Operands {
		words = append(words, v.String())
	}
	return strings.Join(words, " ")
}

// History is a bounded ring of the most recent instructions.
type History struct {
	Length  int // Records kept; HISTORY_LENGTH if zero.
	records []Record
	next    int
}

func (h *History) limit() int {
	if h.Length <= 0 {
		return HISTORY_LENGTH
	}
	return h.Length
}

// Record appends rec, evicting the oldest record past the limit.
func (h *History) Record(rec Record) {
	limit := h.limit()
	if len(h.records) < limit {
		h.records = append(h.records, rec)
		return
	}

	h.records[h.next] = rec
	h.next = (h.next + 1) % limit
}

// Len is the number of records held.
func (h *History) Len() int {
	return len(h.records)
}

// All yields the records oldest first.
func (h *History) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for n := range h.records {
			if !yield(h.records[(h.next+n)%len(h.records)]) {
				return
			}
		}
	}
}

// Backward yields the records most recent first.
func (h *History) Backward() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for n := len(h.records) - 1; n >= 0; n-- {
			if !yield(h.records[(h.next+n)%len(h.records)]) {
				return
			}
		}
	}
}

func (h *History) Reset() {
	h.records = h.records[:0]
	h.next = 0
}
