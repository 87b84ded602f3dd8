package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultGravity pulls along -Y; the scene is Y-up.
var DefaultGravity = mgl64.Vec3{0, -9.82, 0}

// World holds registered bodies and advances them with a small rigid-body step:
// forces and gravity, semi-implicit integration, then contact push-out.
// A World is not safe for concurrent use; register bodies before the frame loop starts.
type World struct {
	Gravity mgl64.Vec3

	bodies []*body
	byID   map[Handle]*body
	next   Handle
}

// NewWorld returns an empty world with DefaultGravity.
func NewWorld() *World {
	return &World{
		Gravity: DefaultGravity,
		byID:    make(map[Handle]*body),
	}
}

// SetGravity sets the gravity vector (e.g. {0, -9.82, 0}).
func (w *World) SetGravity(g mgl64.Vec3) {
	w.Gravity = g
}

// Len returns the number of registered bodies.
func (w *World) Len() int {
	return len(w.bodies)
}

// RegisterBody validates d and adds it to the world. Order of registration is the
// order bodies are stepped and collided in.
func (w *World) RegisterBody(d BodyDescriptor) (Handle, error) {
	if err := d.Validate(); err != nil {
		return 0, &RegistrationError{Body: d.Label, Err: err}
	}
	w.next++
	b := newBody(w.next, d)
	w.bodies = append(w.bodies, b)
	w.byID[b.handle] = b
	return b.handle, nil
}

// RemoveBody drops a body from the world.
func (w *World) RemoveBody(h Handle) error {
	b, ok := w.byID[h]
	if !ok {
		return ErrUnknownBody
	}
	delete(w.byID, h)
	for i, o := range w.bodies {
		if o == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	return nil
}

// Pose returns the latest integrated pose of a body.
func (w *World) Pose(h Handle) (Pose, error) {
	b, ok := w.byID[h]
	if !ok {
		return Pose{}, ErrUnknownBody
	}
	return b.pose, nil
}

// Velocity returns the linear velocity of a body.
func (w *World) Velocity(h Handle) (mgl64.Vec3, error) {
	b, ok := w.byID[h]
	if !ok {
		return mgl64.Vec3{}, ErrUnknownBody
	}
	return b.linVel, nil
}

// ApplyForce accumulates force (newtons, world frame) applied at a world-space point
// until the next Step. Forces on static bodies are ignored.
func (w *World) ApplyForce(h Handle, force, at mgl64.Vec3) error {
	b, ok := w.byID[h]
	if !ok {
		return ErrUnknownBody
	}
	if b.static() {
		return nil
	}
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(at.Sub(b.pose.Position).Cross(force))
	return nil
}

// Step advances the simulation by dt seconds. Non-positive dt does nothing.
func (w *World) Step(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	for _, b := range w.bodies {
		if !b.static() {
			integrate(b, w.Gravity, dt)
		}
		b.force = mgl64.Vec3{}
		b.torque = mgl64.Vec3{}
	}
	w.resolveContacts()
}

func integrate(b *body, gravity mgl64.Vec3, dt float64) {
	q := b.pose.Orientation
	acc := gravity.Add(b.force.Mul(b.invMass))
	b.linVel = b.linVel.Add(acc.Mul(dt))

	if b.torque != (mgl64.Vec3{}) {
		local := q.Inverse().Rotate(b.torque)
		alpha := mgl64.Vec3{
			local[0] * b.invInertia[0],
			local[1] * b.invInertia[1],
			local[2] * b.invInertia[2],
		}
		b.angVel = b.angVel.Add(q.Rotate(alpha).Mul(dt))
	}

	b.pose.Position = b.pose.Position.Add(b.linVel.Mul(dt))
	if b.angVel != (mgl64.Vec3{}) {
		spin := mgl64.Quat{V: b.angVel}.Mul(q).Scale(0.5 * dt)
		q = q.Add(spin)
	}
	b.pose.Orientation = q.Normalize()
}

// resolveContacts pushes overlapping pairs apart. Static bodies never move.
func (w *World) resolveContacts() {
	for i := 0; i < len(w.bodies); i++ {
		bi := w.bodies[i]
		for j := i + 1; j < len(w.bodies); j++ {
			bj := w.bodies[j]
			if bi.static() && bj.static() {
				continue
			}
			switch {
			case bi.desc.Shape.Kind == ShapePlane:
				planeContact(bi, bj)
			case bj.desc.Shape.Kind == ShapePlane:
				planeContact(bj, bi)
			default:
				boxContact(bi, bj)
			}
		}
	}
}

// planeContact lifts b out of the half-space behind the plane and cancels the
// velocity component into it.
func planeContact(plane, b *body) {
	n := plane.planeNormal()
	h := b.aabbHalf()
	reach := math.Abs(n[0])*h[0] + math.Abs(n[1])*h[1] + math.Abs(n[2])*h[2]
	dist := b.pose.Position.Sub(plane.pose.Position).Dot(n)
	depth := reach - dist
	if depth <= 0 {
		return
	}
	b.pose.Position = b.pose.Position.Add(n.Mul(depth))
	if vn := b.linVel.Dot(n); vn < 0 {
		b.linVel = b.linVel.Sub(n.Mul(vn))
	}
}

// penetration returns the overlap depth and axis (0=X, 1=Y, 2=Z) of minimum
// penetration between two world-space boxes. Axis is -1 when they do not overlap.
func penetration(ci, hi, cj, hj mgl64.Vec3) (depth float64, axis int) {
	axis = -1
	for k := 0; k < 3; k++ {
		overlap := hi[k] + hj[k] - math.Abs(cj[k]-ci[k])
		if overlap <= 0 {
			return 0, -1
		}
		if axis < 0 || overlap < depth {
			depth, axis = overlap, k
		}
	}
	return depth, axis
}

// boxContact separates two finite bodies along the axis of minimum penetration,
// sharing the correction by inverse mass, and stops their motion on that axis.
func boxContact(bi, bj *body) {
	ci, cj := bi.pose.Position, bj.pose.Position
	depth, axis := penetration(ci, bi.aabbHalf(), cj, bj.aabbHalf())
	if axis < 0 {
		return
	}
	dir := 1.0
	if cj[axis] < ci[axis] {
		dir = -1
	}
	total := bi.invMass + bj.invMass
	bi.pose.Position[axis] -= dir * depth * bi.invMass / total
	bj.pose.Position[axis] += dir * depth * bj.invMass / total
	if !bi.static() {
		bi.linVel[axis] = 0
	}
	if !bj.static() {
		bj.linVel[axis] = 0
	}
}
