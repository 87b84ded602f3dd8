package stream

import (
	"carsim/internal/physics"
	"carsim/internal/vehicle"
)

// MessageTypePoses tags every pose frame.
const MessageTypePoses = "poses"

// PoseMessage is a pose on the wire. Orientation is x, y, z, w.
type PoseMessage struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

// Frame is one tick's poses for remote renderers.
type Frame struct {
	Type    string                 `json:"type"`
	Tick    uint64                 `json:"tick"`
	Chassis PoseMessage            `json:"chassis"`
	Wheels  map[string]PoseMessage `json:"wheels"`
}

// NewFrame converts a snapshot into a frame keyed by wheel label.
func NewFrame(tick uint64, s vehicle.Snapshot) Frame {
	f := Frame{
		Type:    MessageTypePoses,
		Tick:    tick,
		Chassis: poseMessage(s.Chassis),
		Wheels:  make(map[string]PoseMessage, vehicle.WheelCount),
	}
	for _, l := range vehicle.WheelLabels {
		f.Wheels[l.String()] = poseMessage(s.Wheel(l))
	}
	return f
}

func poseMessage(p physics.Pose) PoseMessage {
	q := p.Orientation
	return PoseMessage{
		Position:    [3]float64(p.Position),
		Orientation: [4]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W},
	}
}
