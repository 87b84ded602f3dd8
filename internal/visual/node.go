package visual

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is the rigid part of a node's local placement relative to its parent.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// IsIdentity reports whether t is the identity within eps. q and -q are the same rotation.
func (t Transform) IsIdentity(eps float64) bool {
	for _, c := range t.Position {
		if math.Abs(c) > eps {
			return false
		}
	}
	q := t.Rotation
	return math.Abs(math.Abs(q.W)-1) <= eps &&
		math.Abs(q.V[0]) <= eps && math.Abs(q.V[1]) <= eps && math.Abs(q.V[2]) <= eps
}

// Mat4 returns translation * rotation.
func (t Transform) Mat4() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2]).Mul4(t.Rotation.Normalize().Mat4())
}

// Node is one element of a loaded visual hierarchy. Mesh nodes carry geometry;
// other nodes only group their children. Scale is kept apart from Transform
// because pose sync never touches it.
type Node struct {
	Name      string
	Mesh      bool
	Transform Transform
	Scale     mgl64.Vec3
	Children  []*Node

	parent *Node
}

// NewGroup returns an empty group node with identity transform and unit scale.
func NewGroup(name string) *Node {
	return &Node{Name: name, Transform: Identity(), Scale: mgl64.Vec3{1, 1, 1}}
}

// NewMesh returns a mesh node with identity transform and unit scale.
func NewMesh(name string) *Node {
	n := NewGroup(name)
	n.Mesh = true
	return n
}

// Parent returns the node this one is attached to, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Add attaches child to n, detaching it from any previous parent first.
// The child's local transform is kept as is.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

// Remove detaches child from n. It reports whether child was attached.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Traverse visits n and its descendants depth first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// Find returns the first node named name in traversal order.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 0
	n.Traverse(func(*Node) { total++ })
	return total
}

// Local returns the node's transform with scale applied last.
func (n *Node) Local() mgl64.Mat4 {
	s := n.Scale
	if s == (mgl64.Vec3{}) {
		s = mgl64.Vec3{1, 1, 1}
	}
	return n.Transform.Mat4().Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// World returns the node's transform composed with all of its ancestors.
func (n *Node) World() mgl64.Mat4 {
	m := n.Local()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Local().Mul4(m)
	}
	return m
}
