package cpu

import (
	"sync"

	"github.com/ezrec/csvm/workbook"
)

// Irq is the queue of requested interrupt addresses. Devices raise from any
// goroutine; the execution loop drains it between instructions.
type Irq struct {
	mutex   sync.Mutex
	pending []workbook.Value
	raised  chan struct{}
}

// Raise queues an interrupt to the address v resolves to.
func (q *Irq) Raise(v workbook.Value) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.pending = append(q.pending, v)

	select {
	case q.signal() <- struct{}{}:
	default:
	}
}

// Raised receives a value after Raise. Signals coalesce; check Len.
func (q *Irq) Raised() <-chan struct{} {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.signal()
}

func (q *Irq) signal() chan struct{} {
	if q.raised == nil {
		q.raised = make(chan struct{}, 1)
	}
	return q.raised
}

// Pop removes the oldest request.
func (q *Irq) Pop() (v workbook.Value, ok bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if len(q.pending) > 0 {
		ok = true
		v = q.pending[0]
		q.pending = q.pending[1:]
	}
	return
}

// Len is the number of pending requests.
func (q *Irq) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return len(q.pending)
}

func (q *Irq) Reset() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.pending = nil
}
