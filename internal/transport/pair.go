package transport

import (
	"fmt"
	"sync"

	"github.com/Bingouzi3/chrono/internal/protocol"
)

// Event is one observed transport operation, recorded for ordering
// verification.
type Event struct {
	Side string
	Op   string // "send" or "recv"
	Kind protocol.Kind
	Tag  uint32
}

// Recorder captures the interleaved send/receive order across both
// sides of a pair endpoint.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(side, op string, f protocol.Frame) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, Event{Side: side, Op: op, Kind: f.Header.Kind, Tag: f.Header.Tag})
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Mem is an in-memory Endpoint. A pair of Mems shares two frame
// channels of capacity one, so neither side can run more than one
// frame ahead of its counterpart. Shutdown is signalled on a done
// channel rather than by closing the frame channels, so a Send racing
// a Close on the same endpoint returns ErrClosed instead of panicking
// on a closed channel.
type Mem struct {
	side string
	out  chan protocol.Frame
	in   chan protocol.Frame
	rec  *Recorder

	done     chan struct{}
	peerDone chan struct{}
	once     sync.Once
}

// Pair returns two connected in-memory endpoints.
func Pair() (*Mem, *Mem) {
	return RecordedPair(nil)
}

// RecordedPair returns two connected endpoints whose operations are
// logged to rec. The first endpoint records as "rig", the second as
// "terrain".
func RecordedPair(rec *Recorder) (*Mem, *Mem) {
	ab := make(chan protocol.Frame, 1)
	ba := make(chan protocol.Frame, 1)
	aDone := make(chan struct{})
	bDone := make(chan struct{})
	a := &Mem{side: "rig", out: ab, in: ba, rec: rec, done: aDone, peerDone: bDone}
	b := &Mem{side: "terrain", out: ba, in: ab, rec: rec, done: bDone, peerDone: aDone}
	return a, b
}

func (m *Mem) Send(f protocol.Frame) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.out <- f:
		m.rec.record(m.side, "send", f)
		return nil
	case <-m.done:
		return ErrClosed
	}
}

func (m *Mem) Recv(kind protocol.Kind, tag uint32) (protocol.Frame, error) {
	select {
	case f := <-m.in:
		return m.deliver(f, kind, tag)
	case <-m.peerDone:
		// A frame already in flight, usually the abort reason, still
		// gets delivered.
		select {
		case f := <-m.in:
			return m.deliver(f, kind, tag)
		default:
			return protocol.Frame{}, fmt.Errorf("%w: endpoint closed", protocol.ErrPeerAborted)
		}
	case <-m.done:
		return protocol.Frame{}, ErrClosed
	}
}

func (m *Mem) deliver(f protocol.Frame, kind protocol.Kind, tag uint32) (protocol.Frame, error) {
	m.rec.record(m.side, "recv", f)
	if err := checkFrame(f, kind, tag); err != nil {
		return protocol.Frame{}, err
	}
	return f, nil
}

func (m *Mem) Barrier(step uint32) error {
	return barrier(m, step)
}

func (m *Mem) Abort(reason string) {
	// Best effort: the counterpart may not be receiving.
	select {
	case m.out <- protocol.EncodeAbort(reason):
	default:
	}
	_ = m.Close()
}

func (m *Mem) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
