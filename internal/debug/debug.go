package debug

import (
	"fmt"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"carsim/internal/physics"
)

const (
	fontSize   = 20
	padding    = 12
	lineHeight = fontSize + 4
	logFont    = 14
	logLine    = logFont + 2
	// updateInterval: refresh FPS/Mem text every N frames to limit allocations.
	updateInterval = 30
)

var (
	statColor = rl.NewColor(0, 140, 60, 255)
	poseColor = rl.DarkGray
	logColor  = rl.NewColor(80, 80, 80, 255)
)

// Debug draws the HUD: FPS and heap (top-right), chassis pose (top-left) and
// the log tail (bottom-left). Overlays are off by default.
type Debug struct {
	ShowFPS      bool
	ShowMemAlloc bool
	// LogLines is how many tail lines to show; 0 hides the log.
	LogLines int

	frameCount  uint32
	lastFpsText string
	lastMemText string
	memStats    runtime.MemStats

	pose     physics.Pose
	speed    float64
	throttle float64
	tail     func() []string
}

// New returns a Debug with all overlays hidden. tail supplies recent log lines.
func New(tail func() []string) *Debug {
	return &Debug{tail: tail}
}

// SetShowFPS sets whether the FPS counter is drawn.
func (d *Debug) SetShowFPS(show bool) {
	d.ShowFPS = show
}

// SetShowMemAlloc sets whether the heap allocation counter is drawn.
func (d *Debug) SetShowMemAlloc(show bool) {
	d.ShowMemAlloc = show
}

// SetVehicle records the values shown in the pose panel.
func (d *Debug) SetVehicle(chassis physics.Pose, velocity mgl64.Vec3, throttle float64) {
	d.pose = chassis
	d.speed = velocity.Len()
	d.throttle = throttle
}

// Draw renders the enabled overlays. Call after the 3D scene.
func (d *Debug) Draw() {
	d.frameCount++
	update := d.frameCount%updateInterval == 0 ||
		(d.ShowFPS && d.lastFpsText == "") ||
		(d.ShowMemAlloc && d.lastMemText == "")

	screenW := int32(rl.GetScreenWidth())
	y := int32(padding)
	if d.ShowFPS {
		if update {
			d.lastFpsText = fmt.Sprintf("FPS: %d", rl.GetFPS())
		}
		rl.DrawText(d.lastFpsText, screenW-rl.MeasureText(d.lastFpsText, fontSize)-padding, y, fontSize, statColor)
		y += lineHeight
	}
	if d.ShowMemAlloc {
		if update {
			runtime.ReadMemStats(&d.memStats)
			d.lastMemText = fmt.Sprintf("Mem: %.2f MiB", float64(d.memStats.Alloc)/(1024*1024))
		}
		rl.DrawText(d.lastMemText, screenW-rl.MeasureText(d.lastMemText, fontSize)-padding, y, fontSize, statColor)
	}

	d.drawPose()
	d.drawLog()
}

func (d *Debug) drawPose() {
	p := d.pose.Position
	y := int32(padding)
	for _, line := range []string{
		fmt.Sprintf("chassis  x %.2f  y %.2f  z %.2f", p.X(), p.Y(), p.Z()),
		fmt.Sprintf("speed    %.2f m/s", d.speed),
		fmt.Sprintf("throttle %+.2f   [Up/Down]", d.throttle),
	} {
		rl.DrawText(line, padding, y, fontSize, poseColor)
		y += lineHeight
	}
}

func (d *Debug) drawLog() {
	if d.LogLines <= 0 || d.tail == nil {
		return
	}
	lines := d.tail()
	if len(lines) > d.LogLines {
		lines = lines[len(lines)-d.LogLines:]
	}
	y := int32(rl.GetScreenHeight()) - padding - int32(len(lines))*logLine
	for _, line := range lines {
		rl.DrawText(line, padding, y, logFont, logColor)
		y += logLine
	}
}
