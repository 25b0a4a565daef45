// Package ffi is the cgo-free core of the C ABI: handle bookkeeping, the
// integer status convention, and the argument validation that must happen
// before any bytes reach a socket. Keeping it free of cgo keeps the contract
// unit-testable; cmd/libmeshstream is a thin shim over this package.
package ffi

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/danmuck/meshstream/internal/mesh"
	"github.com/danmuck/meshstream/internal/protocol"
	"github.com/danmuck/meshstream/internal/sender"
)

// Status is the 2-level integer code the C ABI collapses all errors into.
type Status int32

const (
	StatusOK         Status = 0
	StatusInvalidArg Status = -1 // caller error, checked before any I/O
	StatusFailure    Status = -2 // underlying I/O or protocol failure
)

// LibraryVersion is the fixed semantic version reported by the C ABI.
const LibraryVersion = "2.0.0"

// FrameInput carries buffers borrowed from a foreign caller. Slice lengths
// are element counts. A nil slice means the caller passed a null pointer;
// empty-but-present optional arrays are represented by non-nil empty slices.
type FrameInput struct {
	SimulationID []byte
	FrameNumber  uint32
	Timestamp    uint64
	BoundsMin    [3]float64
	BoundsMax    [3]float64
	Vertices     []float32
	Normals      []float32
	Indices      []uint32
}

// BuildFrame validates in and copies every borrowed buffer into an owned
// MeshFrame. Validation order: required pointers, vertex count nonzero and
// divisible by 3, UTF-8 validity of the id, then the full geometry
// invariants. Each failure short-circuits with StatusInvalidArg before any
// copy of the failing input is retained.
func BuildFrame(in FrameInput) (*mesh.MeshFrame, Status) {
	if in.SimulationID == nil || in.Vertices == nil {
		return nil, StatusInvalidArg
	}
	if len(in.Vertices) == 0 || len(in.Vertices)%3 != 0 {
		return nil, StatusInvalidArg
	}
	if !utf8.Valid(in.SimulationID) {
		return nil, StatusInvalidArg
	}

	frame := (&mesh.MeshFrame{
		SimulationID: string(in.SimulationID),
		FrameNumber:  in.FrameNumber,
		Timestamp:    in.Timestamp,
		Bounds:       mesh.DomainBounds{Min: in.BoundsMin, Max: in.BoundsMax},
		Vertices:     in.Vertices,
		Normals:      in.Normals,
		Indices:      in.Indices,
	}).Clone()

	if err := frame.Validate(); err != nil {
		return nil, StatusInvalidArg
	}
	return frame, StatusOK
}

// SenderConfigFromABI maps the plain-data C config onto sender.Config.
// Zero timeouts mean "no timeout"; zero max size and buffer hint keep the
// defaults. ok is false for an unknown format selector.
func SenderConfigFromABI(format uint32, maxSize uint64, noDelay bool,
	sendBuffer uint64, connectMS, writeMS uint64) (sender.Config, bool) {

	cfg := sender.DefaultConfig()
	switch format {
	case uint32(protocol.FormatBinary):
		cfg.Format = protocol.FormatBinary
	case uint32(protocol.FormatJSON):
		cfg.Format = protocol.FormatJSON
	default:
		return sender.Config{}, false
	}
	if maxSize > 0 {
		if maxSize > uint64(^uint32(0)) {
			return sender.Config{}, false
		}
		cfg.MaxMessageSize = uint32(maxSize)
	}
	cfg.NoDelay = noDelay
	if sendBuffer > 0 {
		cfg.SendBufferSize = int(sendBuffer)
	}
	cfg.ConnectTimeout = millis(connectMS)
	cfg.WriteTimeout = millis(writeMS)
	return cfg, true
}

func millis(ms uint64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Registry maps opaque integer handles to live senders. Handle 0 is never
// issued, so a zeroed handle from the C side always fails lookup.
type Registry struct {
	mu      sync.Mutex
	next    uint64
	senders map[uint64]*sender.Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[uint64]*sender.Sender)}
}

// Put registers s and returns its handle.
func (r *Registry) Put(s *sender.Sender) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.senders[r.next] = s
	return r.next
}

// Get looks up a live handle.
func (r *Registry) Get(h uint64) (*sender.Sender, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.senders[h]
	return s, ok
}

// Remove takes ownership of the handle's sender; the second remove of the
// same handle fails, so a destroy call frees exactly once.
func (r *Registry) Remove(h uint64) (*sender.Sender, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.senders[h]
	if ok {
		delete(r.senders, h)
	}
	return s, ok
}
