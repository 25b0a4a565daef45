package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/danmuck/meshstream/internal/mesh"
)

// jsonCodec is the debug payload encoding. It trades compactness for
// payloads a human (or text tooling) can read off the wire.
type jsonCodec struct{}

func (jsonCodec) Format() WireFormat { return FormatJSON }

func (jsonCodec) EncodeFrame(frame *mesh.MeshFrame) ([]byte, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("protocol: json encode: %w", err)
	}
	return payload, nil
}

func (jsonCodec) DecodeFrame(payload []byte) (*mesh.MeshFrame, error) {
	frame := &mesh.MeshFrame{}
	if err := json.Unmarshal(payload, frame); err != nil {
		return nil, fmt.Errorf("protocol: json decode: %w", err)
	}
	return frame, nil
}
