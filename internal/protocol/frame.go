// Package protocol defines the wire format coupling the rig and terrain
// nodes: a fixed binary frame header plus flat numeric payloads. Every
// per-step frame is tagged with the step index; a tag or size that
// disagrees with what the receiver expects is a protocol violation and
// is fatal for the whole process group.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic   uint32 = 0xC0513701
	Version uint16 = 1

	FixedHeaderLen = 24
)

// Kind identifies a message on the wire.
type Kind uint16

const (
	KindMaterial Kind = iota + 1
	KindDims
	KindTopology
	KindMeshState
	KindForces
	KindBarrier
	KindAbort
)

func (k Kind) String() string {
	switch k {
	case KindMaterial:
		return "material"
	case KindDims:
		return "dims"
	case KindTopology:
		return "topology"
	case KindMeshState:
		return "mesh-state"
	case KindForces:
		return "forces"
	case KindBarrier:
		return "barrier"
	case KindAbort:
		return "abort"
	default:
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
}

// Header is the fixed wire header. Tag carries the step index for
// per-step frames (zero for handshake frames). Count carries the
// element count the payload must agree with: vertices for a mesh-state
// frame, contact vertices for a forces frame.
type Header struct {
	Magic      uint32
	Version    uint16
	Kind       Kind
	Tag        uint32
	Count      uint32
	PayloadLen uint64
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// MaxPayloadBytes bounds decode memory use. Large enough for any
// realistic tire mesh; a frame above it is treated as malformed.
const MaxPayloadBytes = 64 * 1024 * 1024

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Kind))
	binary.BigEndian.PutUint32(buf[8:12], h.Tag)
	binary.BigEndian.PutUint32(buf[12:16], h.Count)
	binary.BigEndian.PutUint64(buf[16:24], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != FixedHeaderLen {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	h := Header{
		Magic:      binary.BigEndian.Uint32(b[0:4]),
		Version:    binary.BigEndian.Uint16(b[4:6]),
		Kind:       Kind(binary.BigEndian.Uint16(b[6:8])),
		Tag:        binary.BigEndian.Uint32(b[8:12]),
		Count:      binary.BigEndian.Uint32(b[12:16]),
		PayloadLen: binary.BigEndian.Uint64(b[16:24]),
	}
	if h.Magic != Magic {
		return Header{}, ErrInvalidMagic
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

func ReadFrame(r io.Reader) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.PayloadLen > MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

func WriteFrame(w io.Writer, f Frame) error {
	if uint64(len(f.Payload)) > MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	h := f.Header
	h.Magic = Magic
	h.Version = Version
	h.PayloadLen = uint64(len(f.Payload))

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

// NewFrame assembles a frame with the standard magic and version.
func NewFrame(kind Kind, tag, count uint32, payload []byte) Frame {
	return Frame{
		Header: Header{
			Magic:      Magic,
			Version:    Version,
			Kind:       kind,
			Tag:        tag,
			Count:      count,
			PayloadLen: uint64(len(payload)),
		},
		Payload: payload,
	}
}
