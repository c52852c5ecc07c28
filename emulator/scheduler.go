package emulator

import (
	"sync"

	"github.com/ezrec/csvm/cpu"
)

// Queue is a cpu.Scheduler that holds quanta until the host runs them.
type Queue struct {
	mutex   sync.Mutex
	pending []func()
	ready   chan struct{}
}

var _ cpu.Scheduler = (*Queue)(nil)

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Schedule queues a quantum. It never blocks.
func (q *Queue) Schedule(quantum func()) {
	q.mutex.Lock()
	q.pending = append(q.pending, quantum)
	q.mutex.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready receives a value whenever quanta have been queued.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued quanta.
func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return len(q.pending)
}

// RunPending runs the quanta queued so far. Quanta they schedule wait for
// the next call.
func (q *Queue) RunPending() (count int) {
	q.mutex.Lock()
	pending := q.pending
	q.pending = nil
	q.mutex.Unlock()

	for _, quantum := range pending {
		quantum()
		count++
	}

	return
}
