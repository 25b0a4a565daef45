package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated reports a stream that ended inside a header or payload.
	ErrTruncated = errors.New("protocol: truncated data")

	// ErrEndOfStream reports a graceful end-of-stream message from the
	// peer. It is distinct from connection failure so callers can tell
	// "peer said goodbye" apart from a broken socket.
	ErrEndOfStream = errors.New("protocol: end of stream")

	// ErrShortPayload reports a payload that ended inside a field.
	ErrShortPayload = errors.New("protocol: short payload")
)

// InvalidVersionError reports a header version mismatch. The connection read
// must stop; there is no resync.
type InvalidVersionError struct {
	Expected uint16
	Received uint16
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("protocol: invalid version: expected %d, received %d",
		e.Expected, e.Received)
}

// InvalidMessageTypeError reports an unknown message-type discriminant.
type InvalidMessageTypeError struct {
	Byte uint8
}

func (e *InvalidMessageTypeError) Error() string {
	return fmt.Sprintf("protocol: invalid message type 0x%02x", e.Byte)
}

// MessageTooLargeError reports a payload exceeding the configured limit.
// Decode raises it before allocating the payload buffer.
type MessageTooLargeError struct {
	Size uint64
	Max  uint64
}

func (e *MessageTooLargeError) Error() string {
	return fmt.Sprintf("protocol: message too large: %d > %d", e.Size, e.Max)
}
