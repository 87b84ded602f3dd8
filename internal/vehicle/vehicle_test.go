package vehicle

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carsim/internal/physics"
)

// countingWorld wraps a real world and optionally refuses the nth registration.
type countingWorld struct {
	*physics.World
	failAt  int
	calls   int
	plain   bool
	removed []physics.Handle
}

func (c *countingWorld) RegisterBody(d physics.BodyDescriptor) (physics.Handle, error) {
	c.calls++
	if c.calls == c.failAt {
		if c.plain {
			return 0, errors.New("out of slots")
		}
		return 0, &physics.RegistrationError{Body: d.Label, Err: errors.New("rejected")}
	}
	return c.World.RegisterBody(d)
}

func (c *countingWorld) RemoveBody(h physics.Handle) error {
	c.removed = append(c.removed, h)
	return c.World.RemoveBody(h)
}

func TestInitialize_RegistersFiveBodies(t *testing.T) {
	w := physics.NewWorld()
	v := New(DefaultConfig(), zap.NewNop())
	require.NoError(t, v.Initialize(w))
	assert.True(t, v.Initialized())
	assert.Equal(t, 5, w.Len())
	assert.NotZero(t, v.ChassisHandle())

	assert.ErrorIs(t, v.Initialize(w), ErrAlreadyInitialized)
	assert.Equal(t, 5, w.Len())
}

func TestInitialize_RollsBackOnAnyFailure(t *testing.T) {
	for failAt := 1; failAt <= 5; failAt++ {
		for _, plain := range []bool{false, true} {
			cw := &countingWorld{World: physics.NewWorld(), failAt: failAt, plain: plain}
			v := New(DefaultConfig(), nil)

			err := v.Initialize(cw)
			require.Error(t, err)
			var regErr *physics.RegistrationError
			require.True(t, errors.As(err, &regErr), "failAt=%d plain=%v: %v", failAt, plain, err)

			assert.Equal(t, 0, cw.Len(), "failAt=%d", failAt)
			assert.Len(t, cw.removed, failAt-1)
			assert.False(t, v.Initialized())
			_, err = v.Snapshot()
			assert.ErrorIs(t, err, ErrNotInitialized)
		}
	}
}

func TestClose_RemovesAllBodies(t *testing.T) {
	cw := &countingWorld{World: physics.NewWorld()}
	v := New(DefaultConfig(), nil)
	require.NoError(t, v.Initialize(cw))
	chassis := v.ChassisHandle()

	require.NoError(t, v.Close())
	assert.Equal(t, 0, cw.Len())
	require.Len(t, cw.removed, 5)
	assert.Equal(t, chassis, cw.removed[4])
	assert.False(t, v.Initialized())
	assert.Zero(t, v.ChassisHandle())

	assert.NoError(t, v.Close())
	assert.Len(t, cw.removed, 5)

	require.NoError(t, v.Initialize(cw))
	assert.Equal(t, 5, cw.Len())
}

func TestInitialize_InvalidShapeRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WheelRadius = 0
	w := physics.NewWorld()
	v := New(cfg, nil)

	err := v.Initialize(w)
	var regErr *physics.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "front-left", regErr.Body)
	assert.Equal(t, 0, w.Len())
}

func TestSnapshot_BeforeStepReturnsInitialPoses(t *testing.T) {
	cfg := DefaultConfig()
	v := New(cfg, nil)
	require.NoError(t, v.Initialize(physics.NewWorld()))

	s, err := v.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, cfg.ChassisPose.Position, s.Chassis.Position)
	for _, l := range WheelLabels {
		assert.Equal(t, cfg.WheelOffsets[l], s.Wheel(l).Position, l.String())
		assert.True(t, s.Wheel(l).Orientation.ApproxEqual(cfg.WheelOrientation), l.String())
	}
}

func TestSnapshot_UnitQuaternions(t *testing.T) {
	w := physics.NewWorld()
	v := New(DefaultConfig(), nil)
	require.NoError(t, v.Initialize(w))

	for i := 0; i < 240; i++ {
		require.NoError(t, v.ApplyLongitudinalForce(50))
		// off-center shove so orientations actually evolve
		require.NoError(t, w.ApplyForce(v.ChassisHandle(), mgl64.Vec3{0, 0, 10}, mgl64.Vec3{1, 1, 0}))
		w.Step(1.0 / 60)

		s, err := v.Snapshot()
		require.NoError(t, err)
		require.InDelta(t, 1, s.Chassis.Orientation.Len(), 1e-6)
		for _, l := range WheelLabels {
			require.InDelta(t, 1, s.Wheel(l).Orientation.Len(), 1e-6)
		}
	}
}

func TestApplyLongitudinalForce_NoopBeforeInitialize(t *testing.T) {
	v := New(DefaultConfig(), nil)
	assert.NoError(t, v.ApplyLongitudinalForce(50))
}

func TestApplyLongitudinalForce_MovesForwardOnly(t *testing.T) {
	w := physics.NewWorld()
	w.SetGravity(mgl64.Vec3{})
	v := New(DefaultConfig(), nil)
	require.Equal(t, 1500.0, v.Config().ChassisMass)
	require.NoError(t, v.Initialize(w))

	before, err := v.Snapshot()
	require.NoError(t, err)
	require.NoError(t, v.ApplyLongitudinalForce(50))
	w.Step(1.0 / 60)
	after, err := v.Snapshot()
	require.NoError(t, err)

	delta := after.Chassis.Position.Sub(before.Chassis.Position)
	forward := before.Chassis.Forward()
	assert.Greater(t, delta.Dot(forward), 0.0)
	lateral := delta.Sub(forward.Mul(delta.Dot(forward)))
	assert.InDelta(t, 0, lateral.Len(), 1e-12)
	assert.Equal(t, before.Chassis.Position.X(), after.Chassis.Position.X())
	assert.Equal(t, before.Chassis.Position.Y(), after.Chassis.Position.Y())

	// F = 50*100 N on 1500 kg for one 1/60 s step
	want := 50 * 100 / 1500.0 / 3600
	assert.InDelta(t, want, delta.Z(), 1e-12)

	for _, l := range WheelLabels {
		assert.Equal(t, before.Wheel(l).Position, after.Wheel(l).Position, l.String())
	}
}

func TestApplyLongitudinalForce_FollowsChassisHeading(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChassisPose.Orientation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	w := physics.NewWorld()
	w.SetGravity(mgl64.Vec3{})
	v := New(cfg, nil)
	require.NoError(t, v.Initialize(w))

	require.NoError(t, v.ApplyLongitudinalForce(-50))
	w.Step(1.0 / 60)
	s, err := v.Snapshot()
	require.NoError(t, err)
	assert.Less(t, s.Chassis.Position.X(), 0.0)
	assert.InDelta(t, 0, s.Chassis.Position.Z(), 1e-12)
}

func TestDescriptors(t *testing.T) {
	v := New(DefaultConfig(), nil)
	ds := v.Descriptors()
	require.Len(t, ds, 5)
	assert.Equal(t, physics.ShapeBox, ds[0].Shape.Kind)
	for i, l := range WheelLabels {
		assert.Equal(t, l.String(), ds[i+1].Label)
		assert.Equal(t, physics.ShapeCylinder, ds[i+1].Shape.Kind)
		assert.NoError(t, ds[i+1].Validate())
	}
}

func TestWheelLabel_String(t *testing.T) {
	assert.Equal(t, "front-left", FrontLeft.String())
	assert.Equal(t, "rear-right", RearRight.String())
	assert.Equal(t, "wheel(7)", WheelLabel(7).String())
	assert.False(t, WheelLabel(-1).Valid())
	assert.True(t, RearLeft.Valid())
}
