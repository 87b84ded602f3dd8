package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose places a rigid body in world space: position plus a unit quaternion.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// At returns an unrotated pose at (x, y, z).
func At(x, y, z float64) Pose {
	return Pose{Position: mgl64.Vec3{x, y, z}, Orientation: mgl64.QuatIdent()}
}

// Normalized returns the pose with its orientation rescaled to unit length.
// A zero quaternion becomes the identity.
func (p Pose) Normalized() Pose {
	p.Orientation = p.Orientation.Normalize()
	return p
}

// Mat4 returns the rigid transform (rotation then translation) of the pose.
func (p Pose) Mat4() mgl64.Mat4 {
	t := mgl64.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z())
	return t.Mul4(p.Orientation.Normalize().Mat4())
}

// Forward returns the body's local +Z axis in world space.
func (p Pose) Forward() mgl64.Vec3 {
	return p.Orientation.Rotate(mgl64.Vec3{0, 0, 1})
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func finiteQuat(q mgl64.Quat) bool {
	return finiteVec(q.V) && !math.IsNaN(q.W) && !math.IsInf(q.W, 0)
}
