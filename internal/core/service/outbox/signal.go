package outbox

// Signal is a coalescing wake-up channel between writers of outbox entries and the dispatcher
type Signal struct {
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify never blocks; pending notifications collapse into one
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *Signal) C() <-chan struct{} {
	return s.ch
}
