package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Handle identifies a body registered with a World. The zero Handle is never issued.
type Handle uint32

// BodyDescriptor is what a caller hands to RegisterBody. Mass 0 means static.
type BodyDescriptor struct {
	Label string
	Mass  float64
	Shape Shape
	Pose  Pose
}

// Static reports whether the body never moves.
func (d BodyDescriptor) Static() bool {
	return d.Mass == 0
}

// ErrUnknownBody is returned for handles the world does not hold.
var ErrUnknownBody = errors.New("physics: unknown body")

// RegistrationError is returned when the world refuses a body.
type RegistrationError struct {
	Body string
	Err  error
}

func (e *RegistrationError) Error() string {
	if e.Body == "" {
		return "physics: register body: " + e.Err.Error()
	}
	return fmt.Sprintf("physics: register body %q: %v", e.Body, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Validate checks mass, shape and initial pose.
func (d BodyDescriptor) Validate() error {
	if math.IsNaN(d.Mass) || math.IsInf(d.Mass, 0) || d.Mass < 0 {
		return fmt.Errorf("mass must be finite and >= 0, got %v", d.Mass)
	}
	if err := d.Shape.Validate(); err != nil {
		return err
	}
	if d.Shape.Kind == ShapePlane && !d.Static() {
		return errors.New("plane bodies must be static")
	}
	if !finiteVec(d.Pose.Position) {
		return errors.New("position must be finite")
	}
	if !finiteQuat(d.Pose.Orientation) || d.Pose.Orientation.Len() == 0 {
		return errors.New("orientation must be a finite non-zero quaternion")
	}
	return nil
}

// body is the world's integrated state for one descriptor.
type body struct {
	handle     Handle
	desc       BodyDescriptor
	pose       Pose
	linVel     mgl64.Vec3
	angVel     mgl64.Vec3
	force      mgl64.Vec3
	torque     mgl64.Vec3
	invMass    float64
	invInertia mgl64.Vec3
}

func newBody(h Handle, d BodyDescriptor) *body {
	b := &body{
		handle: h,
		desc:   d,
		pose:   d.Pose.Normalized(),
	}
	if d.Static() {
		return b
	}
	b.invMass = 1 / d.Mass
	in := d.Shape.inertia(d.Mass)
	for i, c := range in {
		if c > 0 {
			b.invInertia[i] = 1 / c
		}
	}
	return b
}

func (b *body) static() bool {
	return b.invMass == 0
}

// aabbHalf returns the world-space bounding box half extents of a finite body.
// The rotated box is bounded by |R| * h.
func (b *body) aabbHalf() mgl64.Vec3 {
	h := b.desc.Shape.localHalfExtents()
	r := b.pose.Orientation.Mat4()
	var out mgl64.Vec3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out[row] += math.Abs(r.At(row, col)) * h[col]
		}
	}
	return out
}

// planeNormal returns the world-space normal of a plane body.
func (b *body) planeNormal() mgl64.Vec3 {
	return b.pose.Orientation.Rotate(mgl64.Vec3{0, 0, 1}).Normalize()
}
