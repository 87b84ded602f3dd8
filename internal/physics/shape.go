package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind selects the collision primitive of a body.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeCylinder
	ShapePlane
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapeCylinder:
		return "cylinder"
	case ShapePlane:
		return "plane"
	}
	return fmt.Sprintf("shape(%d)", int(k))
}

// Shape is a collision primitive. Box uses HalfExtents. Cylinder uses Radius and
// Height with its axis along local +Y. Plane is infinite with its normal along local +Z.
type Shape struct {
	Kind        ShapeKind
	HalfExtents mgl64.Vec3
	Radius      float64
	Height      float64
}

// Box returns a box shape with the given half extents.
func Box(halfExtents mgl64.Vec3) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: halfExtents}
}

// Cylinder returns a Y-axis cylinder.
func Cylinder(radius, height float64) Shape {
	return Shape{Kind: ShapeCylinder, Radius: radius, Height: height}
}

// Plane returns an infinite plane facing local +Z.
func Plane() Shape {
	return Shape{Kind: ShapePlane}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Validate reports whether the shape dimensions can be simulated.
func (s Shape) Validate() error {
	switch s.Kind {
	case ShapeBox:
		for i, c := range s.HalfExtents {
			if !positive(c) {
				return fmt.Errorf("box half extent %d must be positive, got %v", i, c)
			}
		}
	case ShapeCylinder:
		if !positive(s.Radius) {
			return fmt.Errorf("cylinder radius must be positive, got %v", s.Radius)
		}
		if !positive(s.Height) {
			return fmt.Errorf("cylinder height must be positive, got %v", s.Height)
		}
	case ShapePlane:
	default:
		return fmt.Errorf("unknown shape kind %d", int(s.Kind))
	}
	return nil
}

// localHalfExtents is the half size of the shape's bounding box in its own frame.
func (s Shape) localHalfExtents() mgl64.Vec3 {
	switch s.Kind {
	case ShapeBox:
		return s.HalfExtents
	case ShapeCylinder:
		return mgl64.Vec3{s.Radius, s.Height * 0.5, s.Radius}
	}
	return mgl64.Vec3{}
}

// inertia returns the principal moments of inertia for the given mass.
func (s Shape) inertia(mass float64) mgl64.Vec3 {
	switch s.Kind {
	case ShapeBox:
		x, y, z := 2*s.HalfExtents[0], 2*s.HalfExtents[1], 2*s.HalfExtents[2]
		return mgl64.Vec3{
			mass / 12 * (y*y + z*z),
			mass / 12 * (x*x + z*z),
			mass / 12 * (x*x + y*y),
		}
	case ShapeCylinder:
		r2, h2 := s.Radius*s.Radius, s.Height*s.Height
		side := mass / 12 * (3*r2 + h2)
		return mgl64.Vec3{side, mass / 2 * r2, side}
	}
	return mgl64.Vec3{}
}
