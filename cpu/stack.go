package cpu

const (
	STACK_LIMIT = 16 // Return address slots.
)

// Stack is the subroutine return stack. Sp indexes the top entry; a call
// increments Sp before storing, so slot 0 is never written and at most
// STACK_LIMIT-1 calls may nest.
type Stack struct {
	Sp   uint8
	Data [STACK_LIMIT]uint16
}

// Push stores a return address.
func (s *Stack) Push(value uint16) error {
	if s.Full() {
		return ErrStackOverflow
	}
	s.Sp++
	s.Data[s.Sp] = value
	return nil
}

// Pop removes and returns the top return address.
func (s *Stack) Pop() (value uint16, err error) {
	value, ok := s.Peek()
	if !ok {
		err = ErrStackUnderflow
		return
	}
	s.Sp--
	return
}

// Peek returns the top return address without removing it.
func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[s.Sp], true
}

func (s *Stack) Empty() bool {
	return s.Sp == 0
}

func (s *Stack) Full() bool {
	return int(s.Sp) >= STACK_LIMIT-1
}

// Depth is the number of pending returns.
func (s *Stack) Depth() int {
	return int(s.Sp)
}

func (s *Stack) Reset() {
	s.Sp = 0
	clear(s.Data[:])
}
