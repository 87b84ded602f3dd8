package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_SavesUnderURLName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "model/gltf+json")
		_, _ = w.Write([]byte(`{"asset":{"version":"2.0"}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	got, err := Download(context.Background(), srv.Client(), srv.URL+"/models/car/scene.gltf?v=2", dir, 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scene.gltf"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2.0")
}

func TestDownload_ContentDispositionAndType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="my car"`)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK"))
	}))
	defer srv.Close()

	got, err := Download(context.Background(), srv.Client(), srv.URL+"/get", t.TempDir(), 0)
	require.NoError(t, err)
	assert.Equal(t, "my_car.zip", filepath.Base(got))
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	_, err := Download(context.Background(), srv.Client(), srv.URL+"/missing.glb", dir, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDownload_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Download(ctx, srv.Client(), srv.URL+"/a.glb", t.TempDir(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownload_RejectsOversizedBody(t *testing.T) {
	body := strings.Repeat("x", 64)
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"declared length", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}},
		{"chunked", func(w http.ResponseWriter, r *http.Request) {
			w.(http.Flusher).Flush()
			_, _ = w.Write([]byte(body))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dir := t.TempDir()
			_, err := Download(context.Background(), srv.Client(), srv.URL+"/big.glb", dir, 16)
			require.ErrorIs(t, err, ErrTooLarge)
			entries, _ := os.ReadDir(dir)
			assert.Empty(t, entries)
		})
	}
}

func TestDownload_BodyAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(strings.Repeat("x", 16)))
	}))
	defer srv.Close()

	got, err := Download(context.Background(), srv.Client(), srv.URL+"/ok.glb", t.TempDir(), 16)
	require.NoError(t, err)
	info, err := os.Stat(got)
	require.NoError(t, err)
	assert.EqualValues(t, 16, info.Size())
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "asset", sanitizeFilename(""))
	assert.Equal(t, "asset", sanitizeFilename(".."))
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "a_b.glb", sanitizeFilename("a b.glb"))
}

func TestFilenameFromContentDisposition(t *testing.T) {
	assert.Equal(t, "car.glb", filenameFromContentDisposition(`attachment; filename*=UTF-8''car.glb`))
	assert.Equal(t, "car.zip", filenameFromContentDisposition(`attachment; filename="car.zip"; size=3`))
	assert.Equal(t, "", filenameFromContentDisposition("inline"))
}
