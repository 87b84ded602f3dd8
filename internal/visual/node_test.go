package visual

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_Reparents(t *testing.T) {
	a := NewGroup("a")
	b := NewGroup("b")
	m := NewMesh("m")
	a.Add(m)
	require.Same(t, a, m.Parent())

	b.Add(m)
	assert.Same(t, b, m.Parent())
	assert.Empty(t, a.Children)
	assert.Len(t, b.Children, 1)

	a.Add(a)
	a.Add(nil)
	assert.Empty(t, a.Children)
}

func TestTraverse_PreOrder(t *testing.T) {
	root := NewGroup("root")
	left := NewGroup("left")
	right := NewMesh("right")
	leaf := NewMesh("leaf")
	root.Add(left)
	root.Add(right)
	left.Add(leaf)

	var names []string
	root.Traverse(func(n *Node) { names = append(names, n.Name) })
	assert.Equal(t, []string{"root", "left", "leaf", "right"}, names)
	assert.Equal(t, 4, root.Count())
	assert.Same(t, leaf, root.Find("leaf"))
	assert.Nil(t, root.Find("missing"))
}

func TestRemove(t *testing.T) {
	root := NewGroup("root")
	m := NewMesh("m")
	root.Add(m)
	assert.True(t, root.Remove(m))
	assert.Nil(t, m.Parent())
	assert.False(t, root.Remove(m))
}

func TestIsIdentity(t *testing.T) {
	assert.True(t, Identity().IsIdentity(1e-9))
	assert.True(t, Transform{Rotation: mgl64.Quat{W: -1}}.IsIdentity(1e-9))
	assert.False(t, Transform{Position: mgl64.Vec3{0, 1e-3, 0}, Rotation: mgl64.QuatIdent()}.IsIdentity(1e-9))
	assert.False(t, Transform{Rotation: mgl64.QuatRotate(0.1, mgl64.Vec3{0, 1, 0})}.IsIdentity(1e-9))
}

func TestWorld_ComposesAncestors(t *testing.T) {
	root := NewGroup("root")
	root.Transform.Position = mgl64.Vec3{0, 1, 0}
	root.Scale = mgl64.Vec3{2, 2, 2}
	child := NewMesh("child")
	child.Transform.Position = mgl64.Vec3{1, 0, 0}
	child.Transform.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	root.Add(child)

	p := child.World().Mul4x1(mgl64.Vec4{0, 0, 1, 1})
	// child maps +Z to +X, offsets by 1 on X, then root doubles and lifts by 1
	assert.InDelta(t, 4, p.X(), 1e-9)
	assert.InDelta(t, 1, p.Y(), 1e-9)
	assert.InDelta(t, 0, p.Z(), 1e-9)
}
