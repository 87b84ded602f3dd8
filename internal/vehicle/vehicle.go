package vehicle

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"carsim/internal/physics"
)

// World is the physics service a vehicle registers its bodies with.
type World interface {
	RegisterBody(d physics.BodyDescriptor) (physics.Handle, error)
	RemoveBody(h physics.Handle) error
	Pose(h physics.Handle) (physics.Pose, error)
	ApplyForce(h physics.Handle, force, at mgl64.Vec3) error
}

var (
	ErrNotInitialized     = errors.New("vehicle: not initialized")
	ErrAlreadyInitialized = errors.New("vehicle: already initialized")
)

// Snapshot is the pose of every body of a vehicle after a physics step.
type Snapshot struct {
	Chassis physics.Pose
	Wheels  [WheelCount]physics.Pose
}

// Wheel returns the pose of the wheel at l.
func (s Snapshot) Wheel(l WheelLabel) physics.Pose {
	return s.Wheels[l]
}

// Vehicle owns one chassis body and four wheel bodies. The bodies are
// independent: no joint links the wheels to the chassis.
type Vehicle struct {
	cfg   Config
	log   *zap.Logger
	world World

	chassis physics.Handle
	wheels  [WheelCount]physics.Handle
}

// New returns an unregistered vehicle.
func New(cfg Config, log *zap.Logger) *Vehicle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Vehicle{cfg: cfg, log: log.Named("vehicle")}
}

// Config returns the parameters the vehicle was built with.
func (v *Vehicle) Config() Config {
	return v.cfg
}

// Initialized reports whether the bodies are registered.
func (v *Vehicle) Initialized() bool {
	return v.world != nil
}

// Initialize registers the chassis and then the four wheels with w. If any
// registration fails every body added so far is removed again and the error is
// returned as a *physics.RegistrationError.
func (v *Vehicle) Initialize(w World) error {
	if v.world != nil {
		return ErrAlreadyInitialized
	}
	var added []physics.Handle
	register := func(d physics.BodyDescriptor) (physics.Handle, error) {
		h, err := w.RegisterBody(d)
		if err != nil {
			return 0, err
		}
		added = append(added, h)
		return h, nil
	}

	chassis, err := register(v.cfg.ChassisDescriptor())
	if err != nil {
		return v.rollback(w, added, "chassis", err)
	}
	var wheels [WheelCount]physics.Handle
	for _, l := range WheelLabels {
		h, err := register(v.cfg.WheelDescriptor(l))
		if err != nil {
			return v.rollback(w, added, l.String(), err)
		}
		wheels[l] = h
	}

	v.world = w
	v.chassis = chassis
	v.wheels = wheels
	v.log.Info("registered vehicle bodies",
		zap.Uint32("chassis", uint32(chassis)),
		zap.Float64("chassis_mass", v.cfg.ChassisMass),
		zap.Float64("wheel_mass", v.cfg.WheelMass))
	return nil
}

func (v *Vehicle) rollback(w World, added []physics.Handle, body string, cause error) error {
	for i := len(added) - 1; i >= 0; i-- {
		if err := w.RemoveBody(added[i]); err != nil {
			v.log.Error("rollback failed to remove body", zap.Uint32("handle", uint32(added[i])), zap.Error(err))
		}
	}
	v.log.Warn("vehicle registration aborted", zap.String("body", body), zap.Int("rolled_back", len(added)), zap.Error(cause))

	var regErr *physics.RegistrationError
	if errors.As(cause, &regErr) {
		return fmt.Errorf("vehicle: %w", cause)
	}
	return &physics.RegistrationError{Body: body, Err: cause}
}

// Close removes the wheels and then the chassis from the world the vehicle was
// registered with. Every body is attempted; the first error is returned.
// Close on an unregistered vehicle does nothing.
func (v *Vehicle) Close() error {
	if v.world == nil {
		return nil
	}
	var first error
	for i := WheelCount - 1; i >= 0; i-- {
		if err := v.world.RemoveBody(v.wheels[i]); err != nil && first == nil {
			first = fmt.Errorf("vehicle: remove %s: %w", WheelLabels[i], err)
		}
	}
	if err := v.world.RemoveBody(v.chassis); err != nil && first == nil {
		first = fmt.Errorf("vehicle: remove chassis: %w", err)
	}
	v.world = nil
	v.chassis = 0
	v.wheels = [WheelCount]physics.Handle{}
	v.log.Info("removed vehicle bodies")
	return first
}

// ApplyLongitudinalForce pushes the chassis along its local forward axis (+Z)
// with magnitude*ForceScale newtons, applied at the chassis center so it adds no torque.
// It does nothing before Initialize.
func (v *Vehicle) ApplyLongitudinalForce(magnitude float64) error {
	if v.world == nil {
		return nil
	}
	pose, err := v.world.Pose(v.chassis)
	if err != nil {
		return fmt.Errorf("vehicle: chassis pose: %w", err)
	}
	force := pose.Forward().Mul(magnitude * v.cfg.ForceScale)
	if err := v.world.ApplyForce(v.chassis, force, pose.Position); err != nil {
		return fmt.Errorf("vehicle: apply force: %w", err)
	}
	return nil
}

// Snapshot reads the latest poses from the world. Orientations are renormalized.
// Before the world has stepped it returns the initial poses.
func (v *Vehicle) Snapshot() (Snapshot, error) {
	var s Snapshot
	if v.world == nil {
		return s, ErrNotInitialized
	}
	p, err := v.world.Pose(v.chassis)
	if err != nil {
		return s, fmt.Errorf("vehicle: chassis pose: %w", err)
	}
	s.Chassis = p.Normalized()
	for _, l := range WheelLabels {
		p, err := v.world.Pose(v.wheels[l])
		if err != nil {
			return s, fmt.Errorf("vehicle: %s pose: %w", l, err)
		}
		s.Wheels[l] = p.Normalized()
	}
	return s, nil
}

// Descriptors returns the chassis descriptor followed by the wheels in label order.
func (v *Vehicle) Descriptors() []physics.BodyDescriptor {
	out := make([]physics.BodyDescriptor, 0, 1+WheelCount)
	out = append(out, v.cfg.ChassisDescriptor())
	for _, l := range WheelLabels {
		out = append(out, v.cfg.WheelDescriptor(l))
	}
	return out
}

// ChassisHandle returns the chassis body handle, zero before Initialize.
func (v *Vehicle) ChassisHandle() physics.Handle {
	return v.chassis
}
