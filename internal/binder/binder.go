package binder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"carsim/internal/physics"
	"carsim/internal/vehicle"
	"carsim/internal/visual"
)

// State is the lifecycle stage of a Binder. It only moves forward.
type State int

const (
	Unbound State = iota
	Bound
	Syncing
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Syncing:
		return "syncing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrAlreadyBound means BindWheelGroups was called twice. It is a bug in
	// the caller, not a runtime condition.
	ErrAlreadyBound = errors.New("binder: already bound")
	ErrNotBound     = errors.New("binder: not bound")
)

// RigName is the name of the node that holds the chassis root and wheel groups.
const RigName = "vehicle-rig"

// groupNames are the wheel group node names in label order.
var groupNames = [vehicle.WheelCount]string{"FLW", "FRW", "RLW", "RRW"}

// Binder maps a loaded visual tree onto a vehicle's bodies and copies poses
// onto it every frame.
//
// Binding puts the asset root and four wheel groups side by side under a rig
// node, so every synced node is placed directly in world space.
type Binder struct {
	log    *zap.Logger
	state  State
	rig    *visual.Node
	root   *visual.Node
	groups [vehicle.WheelCount]*visual.Node
	frames uint64
}

// New returns an unbound binder.
func New(log *zap.Logger) *Binder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Binder{log: log.Named("binder")}
}

// State returns the current lifecycle stage.
func (b *Binder) State() State {
	return b.state
}

// BindWheelGroups walks root once and moves every leaf mesh the rule assigns
// to a wheel into that wheel's group. Meshes the rule rejects stay where they
// are, as do mesh nodes with children; only their leaf descendants are
// considered.
// A group is created even when no mesh falls into it.
func (b *Binder) BindWheelGroups(root *visual.Node, rule PartitionRule) error {
	if b.state != Unbound {
		return ErrAlreadyBound
	}
	if root == nil {
		return errors.New("binder: nil asset root")
	}
	if rule == nil {
		return errors.New("binder: nil partition rule")
	}

	type match struct {
		node  *visual.Node
		label vehicle.WheelLabel
	}
	var matches []match
	root.Traverse(func(n *visual.Node) {
		if n == root || !n.Mesh || len(n.Children) > 0 {
			return
		}
		if l, ok := rule(n.Name); ok && l.Valid() {
			matches = append(matches, match{n, l})
		}
	})

	var groups [vehicle.WheelCount]*visual.Node
	for _, l := range vehicle.WheelLabels {
		groups[l] = visual.NewGroup(groupNames[l])
	}
	for _, m := range matches {
		groups[m.label].Add(m.node)
	}

	rig := visual.NewGroup(RigName)
	rig.Add(root)
	for _, g := range groups {
		rig.Add(g)
	}

	b.rig, b.root, b.groups = rig, root, groups
	b.state = Bound

	fields := []zap.Field{zap.String("root", root.Name), zap.Int("matched", len(matches))}
	for _, l := range vehicle.WheelLabels {
		fields = append(fields, zap.Int(l.String(), len(groups[l].Children)))
	}
	b.log.Info("bound wheel groups", fields...)
	return nil
}

// Sync copies the chassis pose onto the asset root and each wheel pose onto its
// group, in label order. No smoothing is applied.
func (b *Binder) Sync(s vehicle.Snapshot) error {
	if b.state == Unbound {
		return ErrNotBound
	}
	copyPose(b.root, s.Chassis)
	for _, l := range vehicle.WheelLabels {
		copyPose(b.groups[l], s.Wheels[l])
	}
	b.state = Syncing
	b.frames++
	return nil
}

func copyPose(n *visual.Node, p physics.Pose) {
	n.Transform.Position = p.Position
	n.Transform.Rotation = p.Orientation
}

// Rig returns the node holding the asset root and the wheel groups, nil before binding.
func (b *Binder) Rig() *visual.Node {
	return b.rig
}

// Chassis returns the bound asset root.
func (b *Binder) Chassis() *visual.Node {
	return b.root
}

// Group returns the wheel group for l, nil before binding.
func (b *Binder) Group(l vehicle.WheelLabel) *visual.Node {
	if !l.Valid() {
		return nil
	}
	return b.groups[l]
}

// Members returns the mesh nodes bound to wheel l.
func (b *Binder) Members(l vehicle.WheelLabel) []*visual.Node {
	g := b.Group(l)
	if g == nil {
		return nil
	}
	out := make([]*visual.Node, len(g.Children))
	copy(out, g.Children)
	return out
}

// Frames returns how many times Sync has run.
func (b *Binder) Frames() uint64 {
	return b.frames
}
