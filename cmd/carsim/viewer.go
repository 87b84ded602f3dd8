package main

import (
	"context"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"carsim/internal/app"
	"carsim/internal/debug"
	"carsim/internal/engineconfig"
	"carsim/internal/graphics"
	"carsim/internal/logger"
	"carsim/internal/physics"
	"carsim/internal/primitives"
	"carsim/internal/scene"
	"carsim/internal/vehicle"
)

const hudLogLines = 6

var (
	groundColor  = rl.NewColor(0xaa, 0xaa, 0xaa, 255)
	chassisColor = rl.NewColor(70, 110, 200, 160)
	wheelColor   = rl.NewColor(40, 40, 40, 255)
)

// viewer draws the simulation with raylib. The glTF model is drawn as one
// piece at the chassis; wheel groups are drawn as proxies at their bound poses.
type viewer struct {
	cfg        engineconfig.Config
	configPath string
	sim        *app.Sim
	log        *logger.Logger

	scene *scene.Scene
	prims *primitives.Registry
	hud   *debug.Debug

	modelPath   string
	model       rl.Model
	modelLoaded bool
	modelTried  bool
	failed      error
}

func newViewer(cfg engineconfig.Config, configPath string, sim *app.Sim, modelPath string, log *logger.Logger) *viewer {
	hud := debug.New(log.Lines)
	hud.SetShowFPS(cfg.Render.ShowFPS)
	hud.SetShowMemAlloc(cfg.Render.ShowMemAlloc)
	hud.LogLines = hudLogLines

	scn := scene.New()
	scn.SetGridVisible(cfg.Render.GridVisible)

	return &viewer{
		cfg:        cfg,
		configPath: configPath,
		sim:        sim,
		log:        log,
		scene:      scn,
		prims:      primitives.NewRegistry(),
		hud:        hud,
		modelPath:  modelPath,
	}
}

func (v *viewer) run(ctx context.Context) error {
	graphics.Run(ctx, v.cfg.Window, v.update, v.draw)
	return v.failed
}

func (v *viewer) update(frameTime float32) {
	if v.failed != nil {
		return
	}
	v.handleToggles()

	throttle := 0.0
	if rl.IsKeyDown(rl.KeyUp) {
		throttle++
	}
	if rl.IsKeyDown(rl.KeyDown) {
		throttle--
	}
	v.sim.SetThrottle(throttle)

	snap, err := v.sim.Tick(v.sim.StepSize(float64(frameTime)))
	if err != nil {
		v.log.Error("tick failed", zap.Error(err))
		v.failed = err
		return
	}
	vel, _ := v.sim.World().Velocity(v.sim.Vehicle().ChassisHandle())
	v.hud.SetVehicle(snap.Chassis, vel, v.sim.Throttle())
	v.scene.Follow(snap.Chassis.Position)
	v.scene.Update()
}

// handleToggles flips render preferences and persists them.
func (v *viewer) handleToggles() {
	r := &v.cfg.Render
	changed := true
	switch {
	case rl.IsKeyPressed(rl.KeyG):
		r.GridVisible = !r.GridVisible
		v.scene.SetGridVisible(r.GridVisible)
	case rl.IsKeyPressed(rl.KeyF):
		r.ShowFPS = !r.ShowFPS
		v.hud.SetShowFPS(r.ShowFPS)
	case rl.IsKeyPressed(rl.KeyM):
		r.ShowMemAlloc = !r.ShowMemAlloc
		v.hud.SetShowMemAlloc(r.ShowMemAlloc)
	case rl.IsKeyPressed(rl.KeyP):
		r.Proxies = !r.Proxies
	default:
		changed = false
	}
	if !changed {
		return
	}
	if err := engineconfig.Save(v.configPath, v.cfg); err != nil {
		v.log.Warn("could not save config", zap.Error(err))
	}
}

func (v *viewer) draw() {
	v.scene.Draw(v.drawWorld)
	v.hud.Draw()
}

func (v *viewer) drawWorld() {
	v.prims.Draw(physics.Plane(), app.GroundDescriptor().Pose, groundColor)

	b := v.sim.Binder()
	if v.cfg.Asset.DrawModel {
		v.drawModel()
	}
	if !v.cfg.Render.Proxies {
		return
	}
	veh := v.sim.Vehicle()
	cfg := veh.Config()
	chassis := nodePose(b.Chassis().Transform.Position, b.Chassis().Transform.Rotation)
	v.prims.DrawWires(physics.Box(cfg.ChassisHalfExtents), chassis, chassisColor)
	wheel := physics.Cylinder(cfg.WheelRadius, cfg.WheelHeight)
	for _, l := range vehicle.WheelLabels {
		t := b.Group(l).Transform
		v.prims.Draw(wheel, nodePose(t.Position, t.Rotation), wheelColor)
	}
}

// drawModel loads the model on first use, after the GL context exists.
func (v *viewer) drawModel() {
	if !v.modelTried {
		v.modelTried = true
		if v.modelPath == "" {
			return
		}
		v.model = rl.LoadModel(v.modelPath)
		v.modelLoaded = rl.IsModelValid(v.model)
		if !v.modelLoaded {
			v.log.Warn("raylib could not load model", zap.String("path", v.modelPath))
		}
	}
	if !v.modelLoaded {
		return
	}
	s := v.cfg.Asset.ModelScale
	if s <= 0 {
		s = 1
	}
	m := v.sim.Binder().Chassis().World().Mul4(mgl64.Scale3D(s, s, s))
	v.model.Transform = primitives.Matrix(m)
	rl.DrawModel(v.model, rl.Vector3{}, 1, rl.White)
}

func nodePose(pos mgl64.Vec3, rot mgl64.Quat) physics.Pose {
	return physics.Pose{Position: pos, Orientation: rot}
}
