package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// WriteMessage frames msg and writes it to w. The payload size is gated
// against maxSize before any bytes go out.
func WriteMessage(w io.Writer, msg *Message, maxSize uint32) error {
	if uint64(len(msg.Payload)) > uint64(maxSize) {
		return &MessageTooLargeError{Size: uint64(len(msg.Payload)), Max: uint64(maxSize)}
	}

	head := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(head[0:2], msg.Version)
	head[2] = byte(msg.Type)
	binary.LittleEndian.PutUint32(head[3:7], uint32(len(msg.Payload)))
	if _, err := w.Write(head); err != nil {
		return err
	}
	if len(msg.Payload) == 0 {
		return nil
	}
	_, err := w.Write(msg.Payload)
	return err
}

// ReadMessage reads one framed envelope from r.
//
// Validation order matches the wire layout: version first (a mismatch stops
// the read with the payload untouched), then the type discriminant, then the
// size gate before the payload buffer is allocated. A clean EOF before any
// header byte surfaces as io.EOF so callers can distinguish connection close
// from a truncated message.
func ReadMessage(r io.Reader, maxSize uint32) (*Message, error) {
	var head [HeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}

	version := binary.LittleEndian.Uint16(head[0:2])
	if version != ProtocolVersion {
		return nil, &InvalidVersionError{Expected: ProtocolVersion, Received: version}
	}

	msgType, err := ParseMessageType(head[2])
	if err != nil {
		return nil, err
	}

	payloadLen := binary.LittleEndian.Uint32(head[3:7])
	if uint64(payloadLen) > uint64(maxSize) {
		return nil, &MessageTooLargeError{Size: uint64(payloadLen), Max: uint64(maxSize)}
	}

	msg := &Message{Version: version, Type: msgType}
	if payloadLen == 0 {
		return msg, nil
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrTruncated
	}
	msg.Payload = payload
	return msg, nil
}
