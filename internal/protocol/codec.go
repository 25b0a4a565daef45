package protocol

import (
	"fmt"

	"github.com/danmuck/meshstream/internal/mesh"
)

// WireFormat selects the payload encoding. The set is closed: binary for
// production, JSON for debugging against text tooling.
type WireFormat uint8

const (
	FormatBinary WireFormat = iota
	FormatJSON
)

func (f WireFormat) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseWireFormat maps a config string to a wire format.
func ParseWireFormat(s string) (WireFormat, error) {
	switch s {
	case "", "binary":
		return FormatBinary, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("protocol: unknown wire format %q", s)
	}
}

// Codec encodes MeshFrame payloads for TypeMeshFrame envelopes. Control
// messages carry no payload and bypass the codec entirely.
type Codec interface {
	EncodeFrame(frame *mesh.MeshFrame) ([]byte, error)
	DecodeFrame(payload []byte) (*mesh.MeshFrame, error)
	Format() WireFormat
}

// NewCodec returns the codec for format.
func NewCodec(format WireFormat) (Codec, error) {
	switch format {
	case FormatBinary:
		return binaryCodec{}, nil
	case FormatJSON:
		return jsonCodec{}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown wire format %d", format)
	}
}
