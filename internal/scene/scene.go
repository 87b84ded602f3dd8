package scene

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	gridExtent     = 50
	gridMajorStep  = 10
	gridMinorAlpha = 40
	gridMajorAlpha = 110

	orbitSensitivity = 0.005
	zoomStep         = 0.1
	minDistance      = 1
	maxDistance      = 200
	maxPitch         = math.Pi/2 - 0.05
)

// Scene holds an orbit camera around a target and draws the 3D world.
// Right-drag orbits, the wheel zooms.
type Scene struct {
	Camera      rl.Camera3D
	GridVisible bool

	target   mgl64.Vec3
	yaw      float64
	pitch    float64
	distance float64
}

// New returns a scene whose camera sits at (0, 4, 5) looking at the origin.
func New() *Scene {
	s := &Scene{GridVisible: true}
	s.Camera.Up = rl.NewVector3(0, 1, 0)
	s.Camera.Fovy = 75
	s.Camera.Projection = rl.CameraPerspective
	s.yaw, s.pitch, s.distance = orbitFrom(mgl64.Vec3{0, 4, 5}, s.target)
	s.apply()
	return s
}

// orbitFrom returns yaw, pitch and distance of eye around target.
func orbitFrom(eye, target mgl64.Vec3) (yaw, pitch, dist float64) {
	d := eye.Sub(target)
	dist = d.Len()
	if dist == 0 {
		return 0, 0, minDistance
	}
	return math.Atan2(d.X(), d.Z()), math.Asin(d.Y() / dist), dist
}

// eyeFor is the inverse of orbitFrom.
func eyeFor(target mgl64.Vec3, yaw, pitch, dist float64) mgl64.Vec3 {
	cp := math.Cos(pitch)
	return target.Add(mgl64.Vec3{
		dist * cp * math.Sin(yaw),
		dist * math.Sin(pitch),
		dist * cp * math.Cos(yaw),
	})
}

func (s *Scene) apply() {
	eye := eyeFor(s.target, s.yaw, s.pitch, s.distance)
	s.Camera.Position = vec3(eye)
	s.Camera.Target = vec3(s.target)
}

// Follow moves the orbit target, keeping the camera's offset.
func (s *Scene) Follow(target mgl64.Vec3) {
	s.target = target
	s.apply()
}

// Update applies mouse orbit and zoom. Call once per frame.
func (s *Scene) Update() {
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		s.yaw -= float64(d.X) * orbitSensitivity
		s.pitch += float64(d.Y) * orbitSensitivity
		s.pitch = math.Max(-maxPitch, math.Min(maxPitch, s.pitch))
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		s.distance *= 1 - float64(wheel)*zoomStep
		s.distance = math.Max(minDistance, math.Min(maxDistance, s.distance))
	}
	s.apply()
}

// SetGridVisible sets whether the grid is drawn.
func (s *Scene) SetGridVisible(visible bool) {
	s.GridVisible = visible
}

// Draw renders the grid and then calls world inside 3D mode.
func (s *Scene) Draw(world func()) {
	rl.BeginMode3D(s.Camera)
	world()
	if s.GridVisible {
		drawGrid()
	}
	rl.EndMode3D()
}

// drawGrid draws lines on the XZ plane slightly above the ground, with darker
// lines every gridMajorStep units.
func drawGrid() {
	minor := rl.NewColor(90, 90, 90, gridMinorAlpha)
	major := rl.NewColor(60, 60, 60, gridMajorAlpha)
	const y = 0.001
	for i := -gridExtent; i <= gridExtent; i++ {
		c := minor
		if i%gridMajorStep == 0 {
			c = major
		}
		f := float32(i)
		rl.DrawLine3D(rl.NewVector3(f, y, -gridExtent), rl.NewVector3(f, y, gridExtent), c)
		rl.DrawLine3D(rl.NewVector3(-gridExtent, y, f), rl.NewVector3(gridExtent, y, f), c)
	}
}

func vec3(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v[0]), float32(v[1]), float32(v[2]))
}
