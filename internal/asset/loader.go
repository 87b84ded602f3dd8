package asset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"carsim/internal/archive"
	"carsim/internal/download"
	"carsim/internal/visual"
)

// Loader turns an asset URL into a visual node tree. Load blocks until the
// asset is fully read; its return is the only readiness signal.
type Loader interface {
	Load(ctx context.Context, url string) (*visual.Node, error)
}

// LoadError wraps every failure to load an asset.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("asset: load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// GLTFLoader loads glTF 2.0 assets (.gltf, .glb) from local paths, file:// and
// http(s) URLs, and zip bundles containing either.
type GLTFLoader struct {
	// CacheDir receives downloads and extracted bundles.
	CacheDir string
	Client   *http.Client
	// MaxBytes caps each download and each extracted file; 0 uses the
	// download and archive package defaults.
	MaxBytes int64

	log  *zap.Logger
	path string
}

// NewGLTFLoader returns a loader caching remote assets under cacheDir.
func NewGLTFLoader(cacheDir string, log *zap.Logger) *GLTFLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &GLTFLoader{CacheDir: cacheDir, log: log.Named("asset")}
}

// Path returns the local file the last successful Load read.
func (l *GLTFLoader) Path() string {
	return l.path
}

// Load resolves rawURL to a local glTF file and builds its default scene.
func (l *GLTFLoader) Load(ctx context.Context, rawURL string) (*visual.Node, error) {
	fail := func(err error) (*visual.Node, error) {
		return nil, &LoadError{URL: rawURL, Err: err}
	}
	path, err := l.resolve(ctx, rawURL)
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	doc, err := gltf.Open(path)
	if err != nil {
		return fail(err)
	}
	root, err := Build(doc)
	if err != nil {
		return fail(err)
	}
	l.path = path
	l.log.Info("loaded asset", zap.String("url", rawURL), zap.String("path", path),
		zap.Int("nodes", root.Count()-1), zap.Int("meshes", len(doc.Meshes)))
	return root, nil
}

// resolve returns a local glTF path for rawURL, downloading and unpacking as needed.
func (l *GLTFLoader) resolve(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.New("empty url")
	}
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			l.log.Debug("downloading asset", zap.String("url", rawURL))
			path, err = download.Download(ctx, l.Client, rawURL, l.cacheDir(), l.MaxBytes)
			if err != nil {
				return "", err
			}
		case "file":
			path = u.Path
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return l.unpack(path)
	}
	return path, nil
}

func (l *GLTFLoader) unpack(zipPath string) (string, error) {
	name := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	dest := filepath.Join(l.cacheDir(), name)
	if _, err := archive.Unzip(zipPath, dest, l.MaxBytes); err != nil {
		return "", err
	}
	models, err := archive.FindModels(dest)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", fmt.Errorf("no .gltf or .glb in %s", filepath.Base(zipPath))
	}
	l.log.Debug("unpacked asset bundle", zap.String("zip", zipPath), zap.String("model", models[0]))
	return models[0], nil
}

func (l *GLTFLoader) cacheDir() string {
	if l.CacheDir == "" {
		return filepath.Join(os.TempDir(), "carsim-assets")
	}
	return l.CacheDir
}
