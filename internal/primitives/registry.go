package primitives

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"carsim/internal/physics"
)

const (
	cylinderSlices = 24
	// groundSize is the drawn extent of an infinite plane.
	groundSize = 100
)

// cached holds a unit mesh and its material for one shape kind.
type cached struct {
	mesh rl.Mesh
	mtl  rl.Material
}

// Registry draws physics shapes as proxy meshes. Meshes are created on first
// use so GPU resources are allocated after the window exists.
type Registry struct {
	cache map[physics.ShapeKind]cached
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{cache: make(map[physics.ShapeKind]cached)}
}

func (r *Registry) ensure(kind physics.ShapeKind) (cached, bool) {
	if c, ok := r.cache[kind]; ok {
		return c, true
	}
	var mesh rl.Mesh
	switch kind {
	case physics.ShapeBox:
		mesh = rl.GenMeshCube(1, 1, 1)
	case physics.ShapeCylinder:
		// Unit cylinder along +Y with its base at the origin.
		mesh = rl.GenMeshCylinder(1, 1, cylinderSlices)
	case physics.ShapePlane:
		mesh = rl.GenMeshPlane(1, 1, 1, 1)
	default:
		return cached{}, false
	}
	c := cached{mesh: mesh, mtl: rl.LoadMaterialDefault()}
	r.cache[kind] = c
	return c, true
}

// Draw draws shape at pose tinted with color. Call between BeginMode3D and EndMode3D.
func (r *Registry) Draw(shape physics.Shape, pose physics.Pose, color rl.Color) {
	c, ok := r.ensure(shape.Kind)
	if !ok {
		return
	}
	if albedo := c.mtl.GetMap(rl.MapAlbedo); albedo != nil {
		albedo.Color = color
	}
	rl.DrawMesh(c.mesh, c.mtl, Matrix(ShapeTransform(shape, pose)))
}

// DrawWires draws the outline of a box or cylinder at pose.
func (r *Registry) DrawWires(shape physics.Shape, pose physics.Pose, color rl.Color) {
	if shape.Kind == physics.ShapePlane {
		return
	}
	rl.PushMatrix()
	rl.MultMatrixf(MatrixF(pose.Mat4()))
	switch shape.Kind {
	case physics.ShapeBox:
		h := shape.HalfExtents
		rl.DrawCubeWires(rl.Vector3{}, float32(2*h[0]), float32(2*h[1]), float32(2*h[2]), color)
	case physics.ShapeCylinder:
		half := float32(shape.Height / 2)
		rad := float32(shape.Radius)
		rl.DrawCylinderWires(rl.NewVector3(0, -half, 0), rad, rad, 2*half, cylinderSlices, color)
	}
	rl.PopMatrix()
}

// ShapeTransform maps the unit mesh for shape.Kind onto the body at pose.
// The cylinder mesh is shifted down by half its height so the body center is
// the cylinder center.
func ShapeTransform(shape physics.Shape, pose physics.Pose) mgl64.Mat4 {
	var local mgl64.Mat4
	switch shape.Kind {
	case physics.ShapeBox:
		h := shape.HalfExtents
		local = mgl64.Scale3D(2*h[0], 2*h[1], 2*h[2])
	case physics.ShapeCylinder:
		local = mgl64.Scale3D(shape.Radius, shape.Height, shape.Radius).
			Mul4(mgl64.Translate3D(0, -0.5, 0))
	case physics.ShapePlane:
		// Raylib planes lie in XZ; body planes face local +Z.
		local = mgl64.HomogRotate3DX(mgl64.DegToRad(90)).
			Mul4(mgl64.Scale3D(groundSize, 1, groundSize))
	default:
		local = mgl64.Ident4()
	}
	return pose.Mat4().Mul4(local)
}

// Matrix converts a column-major mgl64 matrix to a raylib matrix.
func Matrix(m mgl64.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: float32(m[0]), M4: float32(m[4]), M8: float32(m[8]), M12: float32(m[12]),
		M1: float32(m[1]), M5: float32(m[5]), M9: float32(m[9]), M13: float32(m[13]),
		M2: float32(m[2]), M6: float32(m[6]), M10: float32(m[10]), M14: float32(m[14]),
		M3: float32(m[3]), M7: float32(m[7]), M11: float32(m[11]), M15: float32(m[15]),
	}
}

// MatrixF returns m as a column-major float32 array for rlgl.
func MatrixF(m mgl64.Mat4) []float32 {
	out := make([]float32, 16)
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}
