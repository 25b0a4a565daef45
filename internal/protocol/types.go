package protocol

const (
	// ProtocolVersion is the wire version this implementation speaks. A
	// header carrying any other version fails the read, no resync attempt.
	ProtocolVersion uint16 = 2

	// HeaderSize is the fixed envelope header cost on the wire:
	// version:u16 | msg_type:u8 | payload_len:u32, little-endian.
	HeaderSize = 2 + 1 + 4

	// DefaultMaxMessageSize bounds a single payload to 100 MiB.
	DefaultMaxMessageSize uint32 = 100 << 20
)

// MessageType discriminates the envelope payload.
type MessageType uint8

const (
	TypeMeshFrame   MessageType = 0x01
	TypeMetadata    MessageType = 0x02
	TypeCheckpoint  MessageType = 0x03
	TypeEndOfStream MessageType = 0x04
	TypeHeartbeat   MessageType = 0x05
)

// ParseMessageType maps a wire byte to a known message type. The enum is
// closed: unknown discriminants fail rather than defaulting.
func ParseMessageType(b uint8) (MessageType, error) {
	switch mt := MessageType(b); mt {
	case TypeMeshFrame, TypeMetadata, TypeCheckpoint, TypeEndOfStream, TypeHeartbeat:
		return mt, nil
	default:
		return 0, &InvalidMessageTypeError{Byte: b}
	}
}

func (t MessageType) String() string {
	switch t {
	case TypeMeshFrame:
		return "mesh_frame"
	case TypeMetadata:
		return "metadata"
	case TypeCheckpoint:
		return "checkpoint"
	case TypeEndOfStream:
		return "end_of_stream"
	case TypeHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Message is one complete wire envelope.
type Message struct {
	Version uint16
	Type    MessageType
	Payload []byte
}

// Size returns the full on-wire byte count of the message.
func (m *Message) Size() int {
	return HeaderSize + len(m.Payload)
}

// Heartbeat returns a zero-payload keepalive envelope.
func Heartbeat() *Message {
	return &Message{Version: ProtocolVersion, Type: TypeHeartbeat}
}

// EndOfStream returns the zero-payload envelope signaling the sender has no
// more frames for this connection.
func EndOfStream() *Message {
	return &Message{Version: ProtocolVersion, Type: TypeEndOfStream}
}
