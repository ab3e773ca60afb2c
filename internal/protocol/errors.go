package protocol

import "errors"

var (
	ErrInvalidMagic       = errors.New("protocol: invalid magic")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrShortHeader        = errors.New("protocol: short fixed header")
	ErrPayloadTooLarge    = errors.New("protocol: payload too large")
	ErrSizeMismatch       = errors.New("protocol: declared size disagrees with payload")
	ErrTagMismatch        = errors.New("protocol: unexpected step tag")
	ErrKindMismatch       = errors.New("protocol: unexpected message kind")
	ErrPeerAborted        = errors.New("protocol: peer aborted")
)
