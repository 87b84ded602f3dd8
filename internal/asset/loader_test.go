package asset

import (
	"archive/zip"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const carGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"name": "Sketchfab_Scene", "nodes": [0]}],
  "nodes": [
    {"name": "RootNode", "children": [1, 2, 3]},
    {"name": "polySurface1", "mesh": 0, "translation": [1, 2, 3]},
    {"name": "polySurface800", "mesh": 0, "rotation": [0, 0.7071067811865476, 0, 0.7071067811865476]},
    {"mesh": 0, "scale": [2, 2, 2]}
  ],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"componentType": 5126, "count": 3, "type": "VEC3"}]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoad_LocalFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.gltf", carGLTF)
	l := NewGLTFLoader(t.TempDir(), zap.NewNop())

	root, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	assert.Equal(t, "Sketchfab_Scene", root.Name)
	assert.Equal(t, 5, root.Count())

	p1 := root.Find("polySurface1")
	require.NotNil(t, p1)
	assert.True(t, p1.Mesh)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, p1.Transform.Position)
	assert.Equal(t, "RootNode", p1.Parent().Name)

	p800 := root.Find("polySurface800")
	require.NotNil(t, p800)
	assert.InDelta(t, math.Sqrt2/2, p800.Transform.Rotation.V.Y(), 1e-9)

	unnamed := root.Find("node_3")
	require.NotNil(t, unnamed)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, unnamed.Scale)
	assert.False(t, root.Find("RootNode").Mesh)
}

func TestLoad_FileURL(t *testing.T) {
	path := writeFile(t, t.TempDir(), "car.gltf", carGLTF)
	root, err := NewGLTFLoader(t.TempDir(), nil).Load(context.Background(), "file://"+filepath.ToSlash(path))
	require.NoError(t, err)
	assert.NotNil(t, root.Find("polySurface800"))
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "model/gltf+json")
		_, _ = w.Write([]byte(carGLTF))
	}))
	defer srv.Close()

	cache := t.TempDir()
	l := NewGLTFLoader(cache, nil)
	l.Client = srv.Client()
	root, err := l.Load(context.Background(), srv.URL+"/model/scene.gltf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "scene.gltf"), l.Path())
	assert.NotNil(t, root.Find("polySurface1"))
}

func TestLoad_ZipBundle(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "car.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("car/scene.gltf")
	require.NoError(t, err)
	_, err = w.Write([]byte(carGLTF))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	cache := t.TempDir()
	l := NewGLTFLoader(cache, nil)
	root, err := l.Load(context.Background(), zipPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "car", "car", "scene.gltf"), l.Path())
	assert.NotNil(t, root.Find("polySurface1"))
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()
	malformed := writeFile(t, dir, "bad.gltf", `{"asset": {"version": "2.0"`)
	noScenes := writeFile(t, dir, "empty.gltf", `{"asset": {"version": "2.0"}}`)
	badChild := writeFile(t, dir, "child.gltf", `{"asset":{"version":"2.0"},"scenes":[{"nodes":[0]}],"nodes":[{"children":[5]}]}`)
	cycle := writeFile(t, dir, "cycle.gltf", `{"asset":{"version":"2.0"},"scenes":[{"nodes":[0]}],"nodes":[{"children":[1]},{"children":[0]}]}`)
	emptyZip := filepath.Join(dir, "empty.zip")
	zf, err := os.Create(emptyZip)
	require.NoError(t, err)
	require.NoError(t, zip.NewWriter(zf).Close())
	require.NoError(t, zf.Close())

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"missing", filepath.Join(dir, "nope.gltf")},
		{"malformed", malformed},
		{"no scenes", noScenes},
		{"bad child", badChild},
		{"cycle", cycle},
		{"zip without model", emptyZip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewGLTFLoader(t.TempDir(), nil)
			root, err := l.Load(context.Background(), tt.url)
			require.Error(t, err)
			assert.Nil(t, root)
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.url, le.URL)
			assert.Empty(t, l.Path())
		})
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.gltf", carGLTF)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGLTFLoader(t.TempDir(), nil).Load(ctx, path)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_MatrixNode(t *testing.T) {
	m := mgl64.Translate3D(1, 2, 3).
		Mul4(mgl64.HomogRotate3DY(math.Pi / 2)).
		Mul4(mgl64.Scale3D(2, 3, 4))
	doc := &gltf.Document{
		Scenes: []*gltf.Scene{{Nodes: []int{0}}},
		Nodes:  []*gltf.Node{{Name: "m", Matrix: [16]float64(m)}},
	}
	root, err := Build(doc)
	require.NoError(t, err)
	assert.Equal(t, "Scene", root.Name)

	n := root.Find("m")
	require.NotNil(t, n)
	assert.InDelta(t, 1, n.Transform.Position.X(), 1e-9)
	assert.InDelta(t, 3, n.Transform.Position.Z(), 1e-9)
	assert.InDelta(t, 2, n.Scale.X(), 1e-9)
	assert.InDelta(t, 3, n.Scale.Y(), 1e-9)
	assert.InDelta(t, 4, n.Scale.Z(), 1e-9)
	want := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	assert.InDelta(t, 1, math.Abs(n.Transform.Rotation.Dot(want)), 1e-9)
}

func TestBuild_SceneIndexOutOfRange(t *testing.T) {
	doc := &gltf.Document{
		Scene:  gltf.Index(3),
		Scenes: []*gltf.Scene{{Nodes: nil}},
	}
	_, err := Build(doc)
	assert.Error(t, err)
}
