package mesh

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestDefaultBoundsIsUnitCube(t *testing.T) {
	b := DefaultBounds()
	if !b.IsValid() {
		t.Fatalf("default bounds invalid")
	}
	if b.Min != [3]float64{0, 0, 0} || b.Max != [3]float64{1, 1, 1} {
		t.Fatalf("not a unit cube: %+v", b)
	}
	if b.Center() != [3]float64{0.5, 0.5, 0.5} {
		t.Fatalf("wrong center: %v", b.Center())
	}
	if b.Size() != [3]float64{1, 1, 1} {
		t.Fatalf("wrong size: %v", b.Size())
	}
	if got, want := b.DiagonalLength(), math.Sqrt(3); math.Abs(got-want) > 1e-12 {
		t.Fatalf("wrong diagonal: %v", got)
	}
}

func TestBoundsInvalidWhenMinExceedsMax(t *testing.T) {
	b := DomainBounds{Min: [3]float64{0, 2, 0}, Max: [3]float64{1, 1, 1}}
	if b.IsValid() {
		t.Fatalf("expected invalid bounds")
	}
}

func TestValidateVertexCountNotDivisible(t *testing.T) {
	f := &MeshFrame{Vertices: make([]float32, 10)}
	err := f.Validate()
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if !strings.Contains(err.Error(), "not divisible by 3") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateIndexOutOfRange(t *testing.T) {
	f := &MeshFrame{
		Vertices: make([]float32, 9),
		Indices:  []uint32{0, 1, 5},
	}
	err := f.Validate()
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if !strings.Contains(err.Error(), "index 5 exceeds vertex count 3") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateNormalCountMismatch(t *testing.T) {
	f := &MeshFrame{
		Vertices: make([]float32, 9),
		Normals:  make([]float32, 6),
	}
	err := f.Validate()
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if !strings.Contains(err.Error(), "normal count 6") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateIndexLengthNotDivisible(t *testing.T) {
	f := &MeshFrame{
		Vertices: make([]float32, 9),
		Indices:  []uint32{0, 1},
	}
	if err := f.Validate(); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestValidFrames(t *testing.T) {
	soup := &MeshFrame{Vertices: make([]float32, 9)}
	if err := soup.Validate(); err != nil {
		t.Fatalf("soup: %v", err)
	}
	indexed := &MeshFrame{
		Vertices: make([]float32, 9),
		Normals:  make([]float32, 9),
		Indices:  []uint32{0, 1, 2, 2, 1, 0},
	}
	if err := indexed.Validate(); err != nil {
		t.Fatalf("indexed: %v", err)
	}
	empty := &MeshFrame{}
	if err := empty.Validate(); err != nil {
		t.Fatalf("empty: %v", err)
	}
}

func TestDerivedCounts(t *testing.T) {
	soup := &MeshFrame{Vertices: make([]float32, 18)}
	if soup.VertexCount() != 6 || soup.TriangleCount() != 2 {
		t.Fatalf("soup counts: %d vertices, %d triangles",
			soup.VertexCount(), soup.TriangleCount())
	}
	if soup.IsIndexed() || soup.HasNormals() {
		t.Fatalf("soup claims optionals")
	}

	indexed := &MeshFrame{
		Vertices: make([]float32, 12),
		Normals:  make([]float32, 12),
		Indices:  []uint32{0, 1, 2, 1, 2, 3},
	}
	if indexed.VertexCount() != 4 || indexed.TriangleCount() != 2 {
		t.Fatalf("indexed counts: %d vertices, %d triangles",
			indexed.VertexCount(), indexed.TriangleCount())
	}
	if !indexed.IsIndexed() || !indexed.HasNormals() {
		t.Fatalf("indexed misses optionals")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &MeshFrame{
		SimulationID: "clone",
		Vertices:     []float32{1, 2, 3},
		Normals:      []float32{0, 0, 1},
		Indices:      []uint32{0, 0, 0},
	}
	cp := orig.Clone()
	if !cp.Equal(orig) {
		t.Fatalf("clone differs")
	}
	cp.Vertices[0] = 99
	cp.Normals[0] = 99
	cp.Indices[0] = 99
	if orig.Vertices[0] == 99 || orig.Normals[0] == 99 || orig.Indices[0] == 99 {
		t.Fatalf("clone shares backing arrays")
	}
}

func TestEqualDistinguishesOptionalPresence(t *testing.T) {
	soup := &MeshFrame{Vertices: []float32{0, 0, 0}}
	withNormals := &MeshFrame{
		Vertices: []float32{0, 0, 0},
		Normals:  []float32{0, 0, 1},
	}
	if soup.Equal(withNormals) {
		t.Fatalf("frames with different optionals compare equal")
	}
}
