package mesh

import "math"

// DomainBounds is the axis-aligned bounding box of the simulation domain.
type DomainBounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// DefaultBounds returns the unit cube [0,0,0]–[1,1,1].
func DefaultBounds() DomainBounds {
	return DomainBounds{
		Min: [3]float64{0, 0, 0},
		Max: [3]float64{1, 1, 1},
	}
}

// IsValid reports whether Min <= Max holds on every axis.
func (b DomainBounds) IsValid() bool {
	for i := 0; i < 3; i++ {
		if b.Min[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Center returns the midpoint of the box.
func (b DomainBounds) Center() [3]float64 {
	var c [3]float64
	for i := 0; i < 3; i++ {
		c[i] = (b.Min[i] + b.Max[i]) / 2
	}
	return c
}

// Size returns the extent of the box along each axis.
func (b DomainBounds) Size() [3]float64 {
	var s [3]float64
	for i := 0; i < 3; i++ {
		s[i] = b.Max[i] - b.Min[i]
	}
	return s
}

// DiagonalLength returns the length of the box diagonal.
func (b DomainBounds) DiagonalLength() float64 {
	s := b.Size()
	return math.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2])
}
