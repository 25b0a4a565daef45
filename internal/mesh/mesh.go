// Package mesh holds the triangle-mesh frame model exchanged over the
// streaming protocol.
//
// All geometry arrays are flat: Vertices has 3 floats per vertex (x,y,z),
// Normals has 3 floats per vertex, Indices has 3 uint32s per triangle.
// A frame without Indices is a triangle soup: every 3 consecutive vertices
// form one triangle.
package mesh

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrInvalidFrame is the base error wrapped by every Validate failure.
var ErrInvalidFrame = errors.New("mesh: invalid frame")

// MeshFrame is one timestep of a simulation's surface mesh.
//
// Timestamp is nanoseconds since simulation start, producer-assigned; the
// transport enforces no ordering. A frame is owned by exactly one side at a
// time: the producer until sent, the receiver's consumer after decode.
type MeshFrame struct {
	SimulationID string       `json:"simulation_id"`
	FrameNumber  uint32       `json:"frame_number"`
	Timestamp    uint64       `json:"timestamp"`
	Bounds       DomainBounds `json:"domain_bounds"`
	Vertices     []float32    `json:"vertices"`
	Normals      []float32    `json:"normals,omitempty"`
	Indices      []uint32     `json:"indices,omitempty"`
}

// VertexCount returns the number of vertices.
func (f *MeshFrame) VertexCount() int {
	return len(f.Vertices) / 3
}

// TriangleCount returns the number of triangles, indexed or soup.
func (f *MeshFrame) TriangleCount() int {
	if f.IsIndexed() {
		return len(f.Indices) / 3
	}
	return f.VertexCount() / 3
}

// IsIndexed reports whether the frame carries a triangle index array.
func (f *MeshFrame) IsIndexed() bool {
	return f.Indices != nil
}

// HasNormals reports whether the frame carries per-vertex normals.
func (f *MeshFrame) HasNormals() bool {
	return f.Normals != nil
}

// Validate checks the geometry invariants. It is called before every send
// and at the C ABI boundary; a failure means no bytes go on the wire.
func (f *MeshFrame) Validate() error {
	if len(f.Vertices)%3 != 0 {
		return fmt.Errorf("%w: vertex array length %d not divisible by 3",
			ErrInvalidFrame, len(f.Vertices))
	}
	if f.Normals != nil && len(f.Normals) != len(f.Vertices) {
		return fmt.Errorf("%w: normal count %d does not match vertex count %d",
			ErrInvalidFrame, len(f.Normals), len(f.Vertices))
	}
	if f.Indices != nil {
		if len(f.Indices)%3 != 0 {
			return fmt.Errorf("%w: index array length %d not divisible by 3",
				ErrInvalidFrame, len(f.Indices))
		}
		vertexCount := uint32(f.VertexCount())
		for _, idx := range f.Indices {
			if idx >= vertexCount {
				return fmt.Errorf("%w: index %d exceeds vertex count %d",
					ErrInvalidFrame, idx, vertexCount)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the frame. The C ABI boundary uses it to take
// ownership of buffers borrowed from a foreign caller.
func (f *MeshFrame) Clone() *MeshFrame {
	out := &MeshFrame{
		SimulationID: f.SimulationID,
		FrameNumber:  f.FrameNumber,
		Timestamp:    f.Timestamp,
		Bounds:       f.Bounds,
	}
	if f.Vertices != nil {
		out.Vertices = append([]float32(nil), f.Vertices...)
	}
	if f.Normals != nil {
		out.Normals = append([]float32(nil), f.Normals...)
	}
	if f.Indices != nil {
		out.Indices = append([]uint32(nil), f.Indices...)
	}
	return out
}

// Equal reports field-for-field equality with other.
func (f *MeshFrame) Equal(other *MeshFrame) bool {
	if f.SimulationID != other.SimulationID ||
		f.FrameNumber != other.FrameNumber ||
		f.Timestamp != other.Timestamp ||
		f.Bounds != other.Bounds {
		return false
	}
	if len(f.Vertices) != len(other.Vertices) ||
		len(f.Normals) != len(other.Normals) ||
		len(f.Indices) != len(other.Indices) {
		return false
	}
	for i := range f.Vertices {
		if f.Vertices[i] != other.Vertices[i] {
			return false
		}
	}
	for i := range f.Normals {
		if f.Normals[i] != other.Normals[i] {
			return false
		}
	}
	for i := range f.Indices {
		if f.Indices[i] != other.Indices[i] {
			return false
		}
	}
	return true
}

// ReceivedMesh wraps a decoded frame with connection metadata. It is created
// by the receiver per successful decode and owned by the consumer thereafter.
type ReceivedMesh struct {
	Frame      MeshFrame
	SourceAddr net.Addr
	ReceivedAt time.Time
}
