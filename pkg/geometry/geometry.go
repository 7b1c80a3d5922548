// Package geometry provides the point, point-set and bounding-box types
// used throughout rbfinterp.
package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// Point is a location (or displacement) in 3-D space.
type Point = r3.Vector

// Points is an ordered, index-addressable point set. The index of a point
// is its identity in every center set and weight vector.
type Points []Point

// Take returns the points at the given indices, in order.
func (p Points) Take(indices []int) Points {
	out := make(Points, len(indices))
	for i, idx := range indices {
		out[i] = p[idx]
	}
	return out
}

// BBox is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBBox for the identity of Union.
type BBox struct {
	Min Point
	Max Point
}

// EmptyBBox returns a box that contains nothing and absorbs any box it is
// united with.
func EmptyBBox() BBox {
	inf := math.Inf(1)
	return BBox{
		Min: Point{X: inf, Y: inf, Z: inf},
		Max: Point{X: -inf, Y: -inf, Z: -inf},
	}
}

// BBoxFromPoints returns the tightest box around points, or EmptyBBox if
// there are none.
func BBoxFromPoints(points Points) BBox {
	b := EmptyBBox()
	for _, p := range points {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}

// IsEmpty reports whether the box contains no point.
func (b BBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		Min: Point{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Max: Point{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Contains reports whether p lies inside b (boundary included).
func (b BBox) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ContainsBBox reports whether o lies entirely inside b. An empty o is
// contained in every box.
func (b BBox) ContainsBBox(o BBox) bool {
	if o.IsEmpty() {
		return true
	}
	return b.Contains(o.Min) && b.Contains(o.Max)
}

// Size returns the edge lengths of the box, or the zero vector if empty.
func (b BBox) Size() Point {
	if b.IsEmpty() {
		return Point{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b BBox) Center() Point {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Distance returns the gap between two boxes; 0 if they overlap.
func (b BBox) Distance(o BBox) float64 {
	gap := func(aMin, aMax, bMin, bMax float64) float64 {
		return math.Max(0, math.Max(aMin-bMax, bMin-aMax))
	}
	dx := gap(b.Min.X, b.Max.X, o.Min.X, o.Max.X)
	dy := gap(b.Min.Y, b.Max.Y, o.Min.Y, o.Max.Y)
	dz := gap(b.Min.Z, b.Max.Z, o.Min.Z, o.Max.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Component returns the d-th coordinate (0, 1, 2) of p.
func Component(p Point, d int) float64 {
	switch d {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	default:
		panic("illegal dimension")
	}
}
