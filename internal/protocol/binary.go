package protocol

import (
	"encoding/binary"
	"math"

	"github.com/danmuck/meshstream/internal/mesh"
)

// binaryCodec is the production payload encoding. Layout, all little-endian,
// in declaration order:
//
//	simulation_id  u32 length | bytes
//	frame_number   u32
//	timestamp      u64
//	bounds         min x,y,z then max x,y,z as f64
//	vertices       u32 count | count * f32
//	normals        u8 presence | if present: u32 count | count * f32
//	indices        u8 presence | if present: u32 count | count * u32
type binaryCodec struct{}

func (binaryCodec) Format() WireFormat { return FormatBinary }

func (binaryCodec) EncodeFrame(frame *mesh.MeshFrame) ([]byte, error) {
	size := 4 + len(frame.SimulationID) + 4 + 8 + 6*8 +
		4 + 4*len(frame.Vertices) + 1 + 1
	if frame.Normals != nil {
		size += 4 + 4*len(frame.Normals)
	}
	if frame.Indices != nil {
		size += 4 + 4*len(frame.Indices)
	}

	buf := make([]byte, 0, size)
	buf = appendString(buf, frame.SimulationID)
	buf = binary.LittleEndian.AppendUint32(buf, frame.FrameNumber)
	buf = binary.LittleEndian.AppendUint64(buf, frame.Timestamp)
	for i := 0; i < 3; i++ {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(frame.Bounds.Min[i]))
	}
	for i := 0; i < 3; i++ {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(frame.Bounds.Max[i]))
	}
	buf = appendFloat32s(buf, frame.Vertices)
	if frame.Normals != nil {
		buf = append(buf, 1)
		buf = appendFloat32s(buf, frame.Normals)
	} else {
		buf = append(buf, 0)
	}
	if frame.Indices != nil {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(frame.Indices)))
		for _, v := range frame.Indices {
			buf = binary.LittleEndian.AppendUint32(buf, v)
		}
	} else {
		buf = append(buf, 0)
	}
	return buf, nil
}

func (binaryCodec) DecodeFrame(payload []byte) (*mesh.MeshFrame, error) {
	cur := &cursor{buf: payload}

	frame := &mesh.MeshFrame{}
	id, err := cur.string()
	if err != nil {
		return nil, err
	}
	frame.SimulationID = id
	if frame.FrameNumber, err = cur.u32(); err != nil {
		return nil, err
	}
	if frame.Timestamp, err = cur.u64(); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		if frame.Bounds.Min[i], err = cur.f64(); err != nil {
			return nil, err
		}
	}
	for i := 0; i < 3; i++ {
		if frame.Bounds.Max[i], err = cur.f64(); err != nil {
			return nil, err
		}
	}
	if frame.Vertices, err = cur.float32s(); err != nil {
		return nil, err
	}
	hasNormals, err := cur.u8()
	if err != nil {
		return nil, err
	}
	if hasNormals != 0 {
		if frame.Normals, err = cur.float32s(); err != nil {
			return nil, err
		}
	}
	hasIndices, err := cur.u8()
	if err != nil {
		return nil, err
	}
	if hasIndices != 0 {
		count, err := cur.u32()
		if err != nil {
			return nil, err
		}
		if err := cur.need(4 * int(count)); err != nil {
			return nil, err
		}
		frame.Indices = make([]uint32, count)
		for i := range frame.Indices {
			frame.Indices[i], _ = cur.u32()
		}
	}
	if cur.remaining() != 0 {
		return nil, ErrShortPayload
	}
	return frame, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendFloat32s(buf []byte, vals []float32) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(vals)))
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// cursor walks a payload buffer, failing with ErrShortPayload instead of
// panicking on truncated input.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return ErrShortPayload
	}
	return nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

func (c *cursor) f64() (float64, error) {
	v, err := c.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (c *cursor) string() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	if err := c.need(int(n)); err != nil {
		return "", err
	}
	s := string(c.buf[c.off : c.off+int(n)])
	c.off += int(n)
	return s, nil
}

func (c *cursor) float32s() ([]float32, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	if err := c.need(4 * int(count)); err != nil {
		return nil, err
	}
	vals := make([]float32, count)
	for i := range vals {
		bits := binary.LittleEndian.Uint32(c.buf[c.off:])
		c.off += 4
		vals[i] = math.Float32frombits(bits)
	}
	return vals, nil
}
