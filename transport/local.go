package transport

import "sync"

// PipeConn is one end of an in-memory duplex connection. It exists so
// tests and demos can exercise the session layer without real sockets.
type PipeConn struct {
	in   chan []byte
	out  chan []byte
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-memory ends. Frames written to one end
// are read from the other. Closing either end terminates both.
func Pipe() (*PipeConn, *PipeConn) {
	aToB := make(chan []byte, 64)
	bToA := make(chan []byte, 64)
	done := make(chan struct{})
	once := &sync.Once{}

	a := &PipeConn{in: bToA, out: aToB, done: done, once: once}
	b := &PipeConn{in: aToB, out: bToA, done: done, once: once}
	return a, b
}

func (c *PipeConn) Send(frame []byte) error {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	select {
	case <-c.done:
		// Closed pipe behaves like a closed socket: the frame is dropped.
		return nil
	case c.out <- buf:
		return nil
	}
}

func (c *PipeConn) Read() ([]byte, error) {
	// Drain frames delivered before the close was observed.
	select {
	case frame := <-c.in:
		return frame, nil
	default:
	}

	select {
	case frame := <-c.in:
		return frame, nil
	case <-c.done:
		return nil, ErrClosed
	}
}

func (c *PipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
