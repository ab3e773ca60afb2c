// Package transport provides the blocking point-to-point message
// channel between the rig and terrain processes. The only primitives
// are a synchronous tagged send/receive pair and a two-party barrier;
// there is no asynchronous or speculative communication. A receive
// stalls until the counterpart's matching send arrives, which yields
// strict lock-step execution of the co-simulation loop.
package transport

import (
	"errors"
	"fmt"

	"github.com/Bingouzi3/chrono/internal/protocol"
)

var (
	ErrClosed = errors.New("transport: endpoint closed")
)

// Endpoint is one side of the rig/terrain channel.
type Endpoint interface {
	// Send delivers one frame to the counterpart.
	Send(f protocol.Frame) error

	// Recv blocks until the next frame arrives and checks it against
	// the expected kind and step tag. A mismatch is a protocol
	// violation, never resynchronized. An abort frame from the peer
	// surfaces as protocol.ErrPeerAborted.
	Recv(kind protocol.Kind, tag uint32) (protocol.Frame, error)

	// Barrier blocks until both parties have reached the given step
	// boundary.
	Barrier(step uint32) error

	// Abort tears down the process group: it makes a best-effort
	// delivery of an abort frame to the counterpart and closes the
	// endpoint. The counterpart observes protocol.ErrPeerAborted on
	// its next receive.
	Abort(reason string)

	Close() error
}

// checkFrame applies the common receive-side validation.
func checkFrame(f protocol.Frame, kind protocol.Kind, tag uint32) error {
	if f.Header.Kind == protocol.KindAbort {
		return fmt.Errorf("%w: %s", protocol.ErrPeerAborted, protocol.AbortReason(f))
	}
	if f.Header.Kind != kind {
		return fmt.Errorf("%w: got %s want %s", protocol.ErrKindMismatch, f.Header.Kind, kind)
	}
	if f.Header.Tag != tag {
		return fmt.Errorf("%w: got tag %d want %d (%s)", protocol.ErrTagMismatch, f.Header.Tag, tag, kind)
	}
	return nil
}

// barrier performs the two-party barrier on any endpoint: exchange one
// empty barrier frame tagged with the step index in each direction.
func barrier(ep Endpoint, step uint32) error {
	if err := ep.Send(protocol.EncodeBarrier(step)); err != nil {
		return err
	}
	if _, err := ep.Recv(protocol.KindBarrier, step); err != nil {
		return err
	}
	return nil
}
