package asset

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"carsim/internal/visual"
)

// Build converts the document's default scene (or scene 0) into a visual tree.
// The returned root is a group named after the scene; its children are the
// scene's root nodes.
func Build(doc *gltf.Document) (*visual.Node, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	if len(doc.Scenes) == 0 {
		return nil, errors.New("document has no scenes")
	}
	si := 0
	if doc.Scene != nil {
		si = *doc.Scene
	}
	if si < 0 || si >= len(doc.Scenes) || doc.Scenes[si] == nil {
		return nil, fmt.Errorf("scene index %d out of range", si)
	}
	scene := doc.Scenes[si]
	name := scene.Name
	if name == "" {
		name = "Scene"
	}
	root := visual.NewGroup(name)

	b := builder{doc: doc, visiting: make(map[int]bool)}
	for _, idx := range scene.Nodes {
		n, err := b.node(idx)
		if err != nil {
			return nil, err
		}
		root.Add(n)
	}
	return root, nil
}

type builder struct {
	doc      *gltf.Document
	visiting map[int]bool
}

func (b *builder) node(idx int) (*visual.Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) || b.doc.Nodes[idx] == nil {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if b.visiting[idx] {
		return nil, fmt.Errorf("node %d is its own ancestor", idx)
	}
	b.visiting[idx] = true
	defer delete(b.visiting, idx)

	src := b.doc.Nodes[idx]
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}
	n := visual.NewGroup(name)
	n.Mesh = src.Mesh != nil
	n.Transform, n.Scale = localTransform(src)

	for _, c := range src.Children {
		child, err := b.node(c)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// localTransform reads TRS from a node, decomposing its matrix when one is set.
func localTransform(src *gltf.Node) (visual.Transform, mgl64.Vec3) {
	if src.Matrix != identity16 && src.Matrix != ([16]float64{}) {
		return decompose(mgl64.Mat4(src.Matrix))
	}
	t := visual.Transform{
		Position: mgl64.Vec3(src.Translation),
		Rotation: mgl64.Quat{W: src.Rotation[3], V: mgl64.Vec3{src.Rotation[0], src.Rotation[1], src.Rotation[2]}},
	}
	if t.Rotation.Len() == 0 {
		t.Rotation = mgl64.QuatIdent()
	}
	t.Rotation = t.Rotation.Normalize()
	scale := mgl64.Vec3(src.Scale)
	if scale == (mgl64.Vec3{}) {
		scale = mgl64.Vec3{1, 1, 1}
	}
	return t, scale
}

// decompose splits a column-major TRS matrix. Shear is dropped.
func decompose(m mgl64.Mat4) (visual.Transform, mgl64.Vec3) {
	scale := mgl64.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	rot := mgl64.Ident4()
	for c := 0; c < 3; c++ {
		if scale[c] == 0 {
			continue
		}
		col := m.Col(c).Vec3().Mul(1 / scale[c])
		rot.SetCol(c, col.Vec4(0))
	}
	return visual.Transform{
		Position: m.Col(3).Vec3(),
		Rotation: mgl64.Mat4ToQuat(rot).Normalize(),
	}, scale
}
