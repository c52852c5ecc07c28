package cpu

const (
	STACK_LIMIT = 256 // Maximum call depth
)

// Frame is a saved program counter.
type Frame struct {
	Column    int
	Row       int
	Interrupt bool // Pushed by interrupt dispatch.
}

// Stack is the call stack.
type Stack struct {
	Data []Frame
}

func (s *Stack) Push(frame Frame) (err error) {
	if s.Full() {
		err = ErrStackFull
		return
	}
	s.Data = append(s.Data, frame)
	return
}

func (s *Stack) Pop() (frame Frame, ok bool) {
	frame, ok = s.Peek()
	if ok {
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

func (s *Stack) Full() bool {
	return len(s.Data) >= STACK_LIMIT
}

func (s *Stack) Peek() (frame Frame, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

// Interrupted reports whether an interrupt handler is on the stack.
func (s *Stack) Interrupted() bool {
	for _, frame := range s.Data {
		if frame.Interrupt {
			return true
		}
	}
	return false
}

func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}
