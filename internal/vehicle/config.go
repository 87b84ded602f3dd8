package vehicle

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"carsim/internal/physics"
)

// WheelLabel names a wheel mounting position. The numeric order is the order
// wheels are registered, snapshotted and synced in.
type WheelLabel int

const (
	FrontLeft WheelLabel = iota
	FrontRight
	RearLeft
	RearRight
)

// WheelCount is the number of wheels on a vehicle.
const WheelCount = 4

// WheelLabels lists every label in stable order.
var WheelLabels = [WheelCount]WheelLabel{FrontLeft, FrontRight, RearLeft, RearRight}

func (l WheelLabel) String() string {
	switch l {
	case FrontLeft:
		return "front-left"
	case FrontRight:
		return "front-right"
	case RearLeft:
		return "rear-left"
	case RearRight:
		return "rear-right"
	}
	return fmt.Sprintf("wheel(%d)", int(l))
}

// Valid reports whether l is one of the four mounting positions.
func (l WheelLabel) Valid() bool {
	return l >= FrontLeft && l <= RearRight
}

// Config holds the fixed body parameters of a vehicle. Units are kilograms, meters and newtons.
type Config struct {
	ChassisMass        float64
	ChassisHalfExtents mgl64.Vec3
	ChassisPose        physics.Pose

	WheelMass        float64
	WheelRadius      float64
	WheelHeight      float64
	WheelOrientation mgl64.Quat
	WheelOffsets     [WheelCount]mgl64.Vec3

	// ForceScale multiplies the magnitude passed to ApplyLongitudinalForce.
	ForceScale float64
}

// DefaultConfig returns the stock car: a 1500 kg slab chassis one meter up and
// four 50 kg wheels lying on their side at the corners.
func DefaultConfig() Config {
	return Config{
		ChassisMass:        1500,
		ChassisHalfExtents: mgl64.Vec3{1, 0.1, 2},
		ChassisPose:        physics.At(0, 1, 0),

		WheelMass:        50,
		WheelRadius:      0.1,
		WheelHeight:      0.1,
		WheelOrientation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}),
		WheelOffsets: [WheelCount]mgl64.Vec3{
			FrontLeft:  {-0.9, 0.5, 1.8},
			FrontRight: {0.9, 0.5, 1.8},
			RearLeft:   {-0.9, 0.5, -1.8},
			RearRight:  {0.9, 0.5, -1.8},
		},

		ForceScale: 100,
	}
}

// ChassisDescriptor builds the chassis body descriptor.
func (c Config) ChassisDescriptor() physics.BodyDescriptor {
	return physics.BodyDescriptor{
		Label: "chassis",
		Mass:  c.ChassisMass,
		Shape: physics.Box(c.ChassisHalfExtents),
		Pose:  c.ChassisPose,
	}
}

// WheelDescriptor builds the descriptor for one wheel. Offsets are relative to the world origin.
func (c Config) WheelDescriptor(l WheelLabel) physics.BodyDescriptor {
	return physics.BodyDescriptor{
		Label: l.String(),
		Mass:  c.WheelMass,
		Shape: physics.Cylinder(c.WheelRadius, c.WheelHeight),
		Pose: physics.Pose{
			Position:    c.WheelOffsets[l],
			Orientation: c.WheelOrientation,
		},
	}
}
