package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Read once a connection has terminated. Every
// Read after the first failure keeps failing; the first error is the
// connection's single terminal signal.
var ErrClosed = errors.New("transport closed")

// Conn is one established duplex connection. It is a thin pipe: no
// buffering, no retry. Send on a locally closed connection silently
// discards the frame; readiness checks belong to the channel layer.
type Conn interface {
	Send(frame []byte) error
	Read() ([]byte, error)
	Close() error
}

// Dialer opens a new connection to the game server. Canceling the
// context aborts an in-flight dial.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, addr string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, addr string) (Conn, error) {
	return f(ctx, addr)
}
