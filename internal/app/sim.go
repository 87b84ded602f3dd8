package app

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carsim/internal/asset"
	"carsim/internal/binder"
	"carsim/internal/engineconfig"
	"carsim/internal/physics"
	"carsim/internal/stream"
	"carsim/internal/vehicle"
	"carsim/internal/visual"
)

// LogEvery is how many headless frames pass between chassis pose log lines.
const LogEvery = 60

// Publisher receives a frame after every tick. *stream.Hub satisfies it.
type Publisher interface {
	Publish(stream.Frame) error
}

// Options configures Bootstrap. Only Loader is required.
type Options struct {
	// Config is completed with engineconfig.Config.WithDefaults, so a zero
	// Config runs with the default physics and vehicle settings.
	Config engineconfig.Config
	Loader asset.Loader
	// World defaults to a new physics world.
	World *physics.World
	// Vehicle overrides the vehicle constants derived from Config.
	Vehicle *vehicle.Config
	Log     *zap.Logger
	Stream  Publisher
}

// Sim owns the running simulation: world, vehicle, bound visual tree.
// It is driven from a single goroutine.
type Sim struct {
	cfg     engineconfig.Config
	log     *zap.Logger
	world   *physics.World
	ground  physics.Handle
	vehicle *vehicle.Vehicle
	binder  *binder.Binder
	root    *visual.Node
	stream  Publisher

	throttle float64
	ticks    uint64
}

// GroundDescriptor is the static ground plane, rotated so its normal is +Y.
func GroundDescriptor() physics.BodyDescriptor {
	return physics.BodyDescriptor{
		Label: "ground",
		Mass:  0,
		Shape: physics.Plane(),
		Pose: physics.Pose{
			Orientation: mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0}),
		},
	}
}

// Bootstrap loads the asset and registers the vehicle concurrently, waits for
// both, then binds the wheel groups. No Sim is returned unless all three succeed.
func Bootstrap(ctx context.Context, opts Options) (*Sim, error) {
	if opts.Loader == nil {
		return nil, errors.New("app: nil loader")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config.WithDefaults()
	w := opts.World
	if w == nil {
		w = physics.NewWorld()
	}
	w.SetGravity(mgl64.Vec3(cfg.Physics.Gravity))

	ground, err := w.RegisterBody(GroundDescriptor())
	if err != nil {
		return nil, err
	}

	vcfg := vehicle.DefaultConfig()
	vcfg.ForceScale = cfg.Vehicle.ForceScale
	if opts.Vehicle != nil {
		vcfg = *opts.Vehicle
	}
	veh := vehicle.New(vcfg, log)

	// fail leaves the world as Bootstrap found it.
	fail := func(err error) (*Sim, error) {
		log.Error("bootstrap failed", zap.Error(err))
		if cerr := veh.Close(); cerr != nil {
			log.Warn("could not remove vehicle bodies", zap.Error(cerr))
		}
		if rerr := w.RemoveBody(ground); rerr != nil {
			log.Warn("could not remove ground", zap.Error(rerr))
		}
		return nil, err
	}

	var root *visual.Node
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := opts.Loader.Load(gctx, cfg.Asset.URL)
		if err != nil {
			return err
		}
		root = r
		return nil
	})
	g.Go(func() error {
		return veh.Initialize(w)
	})
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	b := binder.New(log)
	if err := b.BindWheelGroups(root, binder.DefaultRule()); err != nil {
		return fail(fmt.Errorf("app: bind wheel groups: %w", err))
	}

	log.Info("simulation ready",
		zap.String("asset", cfg.Asset.URL),
		zap.Int("bodies", w.Len()),
		zap.Int("visual_nodes", b.Rig().Count()))
	return &Sim{
		cfg:     cfg,
		log:     log.Named("sim"),
		world:   w,
		ground:  ground,
		vehicle: veh,
		binder:  b,
		root:    root,
		stream:  opts.Stream,
	}, nil
}

// SetThrottle sets the drive input, clamped to [-1, 1]. NaN releases it.
func (s *Sim) SetThrottle(v float64) {
	switch {
	case math.IsNaN(v):
		v = 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	s.throttle = v
}

// Throttle returns the current drive input.
func (s *Sim) Throttle() float64 {
	return s.throttle
}

// StepSize returns the physics step for a frame that took frameTime seconds.
func (s *Sim) StepSize(frameTime float64) float64 {
	p := s.cfg.Physics
	if !p.MeasuredDelta || !(frameTime > 0) {
		return p.FixedStep
	}
	if p.MaxStep > 0 && frameTime > p.MaxStep {
		return p.MaxStep
	}
	return frameTime
}

// Tick runs one frame: apply throttle, step, read poses, sync visuals, publish.
func (s *Sim) Tick(dt float64) (vehicle.Snapshot, error) {
	if s.throttle != 0 {
		if err := s.vehicle.ApplyLongitudinalForce(s.throttle * s.cfg.Vehicle.ThrottleForce); err != nil {
			return vehicle.Snapshot{}, err
		}
	}
	s.world.Step(dt)

	snap, err := s.vehicle.Snapshot()
	if err != nil {
		return snap, err
	}
	if err := s.binder.Sync(snap); err != nil {
		return snap, err
	}
	s.ticks++

	if s.stream != nil {
		if err := s.stream.Publish(stream.NewFrame(s.ticks, snap)); err != nil {
			s.log.Warn("publish failed", zap.Error(err))
		}
	}
	return snap, nil
}

// RunHeadless ticks with the fixed step until frames ticks have run or ctx is
// done. frames <= 0 runs until ctx is done.
func (s *Sim) RunHeadless(ctx context.Context, frames int) error {
	dt := s.cfg.Physics.FixedStep
	for i := 0; frames <= 0 || i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := s.Tick(dt)
		if err != nil {
			return err
		}
		if s.ticks%LogEvery == 0 {
			p := snap.Chassis.Position
			s.log.Info("chassis",
				zap.Uint64("tick", s.ticks),
				zap.Float64("x", p.X()), zap.Float64("y", p.Y()), zap.Float64("z", p.Z()))
		}
	}
	return nil
}

// Ticks returns how many frames have run.
func (s *Sim) Ticks() uint64 { return s.ticks }

func (s *Sim) World() *physics.World     { return s.world }
func (s *Sim) Vehicle() *vehicle.Vehicle { return s.vehicle }
func (s *Sim) Binder() *binder.Binder    { return s.binder }
func (s *Sim) Ground() physics.Handle    { return s.ground }

// Root returns the loaded asset root, now a child of the binder's rig.
func (s *Sim) Root() *visual.Node { return s.root }
