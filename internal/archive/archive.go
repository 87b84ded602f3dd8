package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxBytes caps each extracted file when Unzip is given a non-positive limit.
const DefaultMaxBytes int64 = 512 << 20

// ErrTooLarge is returned when an entry decompresses past the size limit.
var ErrTooLarge = errors.New("entry exceeds size limit")

// Unzip extracts zipPath into destDir, preserving directory structure.
// Entries that would land outside destDir are skipped. An entry larger than
// maxBytes stops extraction with ErrTooLarge and its partial file is removed.
// Returns the extracted file paths.
func Unzip(zipPath, destDir string, maxBytes int64) (extracted []string, err error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	defer r.Close()
	absDir, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}
	for _, f := range r.File {
		dest := filepath.Join(absDir, f.Name)
		if !strings.HasPrefix(dest, absDir+string(os.PathSeparator)) {
			continue // zip slip
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return nil, fmt.Errorf("unzip: %w", err)
			}
			continue
		}
		if err := extractFile(f, dest, maxBytes); err != nil {
			return nil, fmt.Errorf("unzip %s: %w", f.Name, err)
		}
		extracted = append(extracted, dest)
	}
	return extracted, nil
}

func extractFile(f *zip.File, dest string, maxBytes int64) error {
	if f.UncompressedSize64 > uint64(maxBytes) {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, f.UncompressedSize64, maxBytes)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	// The header size is not trusted; count what actually decompresses.
	n, err := io.Copy(out, io.LimitReader(rc, maxBytes+1))
	if err == nil && n > maxBytes {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	if err != nil {
		out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}

// FindModels returns glTF files (.gltf, .glb) under dir. Files named scene.* come
// first, then shallower paths, then lexical order.
func FindModels(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gltf", ".glb":
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	isScene := func(p string) bool {
		return strings.HasPrefix(strings.ToLower(filepath.Base(p)), "scene.")
	}
	depth := func(p string) int {
		return strings.Count(filepath.ToSlash(p), "/")
	}
	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if isScene(a) != isScene(b) {
			return isScene(a)
		}
		if depth(a) != depth(b) {
			return depth(a) < depth(b)
		}
		return a < b
	})
	return found, nil
}
