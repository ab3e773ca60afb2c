package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/Bingouzi3/chrono/internal/protocol"
)

// TCP is an Endpoint over a single TCP connection. The terrain process
// listens and the rig process dials; which side does what is fixed by
// configuration, not negotiated.
type TCP struct {
	conn net.Conn
	r    *bufio.Reader

	wmu    sync.Mutex
	closed bool
}

// Listen accepts exactly one counterpart connection on addr.
func Listen(addr string) (*TCP, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("transport: accept on %s: %w", addr, err)
	}
	return newTCP(conn), nil
}

// Dial connects to the counterpart at addr.
func Dial(addr string) (*TCP, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return newTCP(conn), nil
}

func newTCP(conn net.Conn) *TCP {
	if tc, ok := conn.(*net.TCPConn); ok {
		// Frames are written header-then-payload; do not batch them.
		tc.SetNoDelay(true)
	}
	return &TCP{conn: conn, r: bufio.NewReader(conn)}
}

func (t *TCP) Send(f protocol.Frame) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return protocol.WriteFrame(t.conn, f)
}

func (t *TCP) Recv(kind protocol.Kind, tag uint32) (protocol.Frame, error) {
	f, err := protocol.ReadFrame(t.r)
	if err != nil {
		// A counterpart that died without an abort frame shows up as a
		// truncated read. The sides' physical states are already
		// inconsistent; treat it the same as an abort.
		if errors.Is(err, protocol.ErrShortHeader) {
			return protocol.Frame{}, fmt.Errorf("%w: connection closed", protocol.ErrPeerAborted)
		}
		return protocol.Frame{}, err
	}
	if err := checkFrame(f, kind, tag); err != nil {
		return protocol.Frame{}, err
	}
	return f, nil
}

func (t *TCP) Barrier(step uint32) error {
	return barrier(t, step)
}

func (t *TCP) Abort(reason string) {
	_ = t.Send(protocol.EncodeAbort(reason))
	_ = t.Close()
}

func (t *TCP) Close() error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
