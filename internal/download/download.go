package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const userAgent = "carsim/1.0 (+asset fetch)"

// DefaultMaxBytes caps a download when Download is given a non-positive limit.
const DefaultMaxBytes int64 = 512 << 20

// ErrTooLarge is returned when a response body exceeds the size limit.
var ErrTooLarge = errors.New("download: body exceeds size limit")

// DefaultClient is used when Download is given a nil client.
var DefaultClient = &http.Client{Timeout: 60 * time.Second}

// Download fetches rawURL and saves it under destDir. The filename comes from
// Content-Disposition or the URL path; the extension from the URL or Content-Type.
// Returns the path of the saved file. destDir is created if needed.
// Bodies larger than maxBytes fail with ErrTooLarge and leave no file behind.
func Download(ctx context.Context, client *http.Client, rawURL, destDir string, maxBytes int64) (savedPath string, err error) {
	if client == nil {
		client = DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: %s: HTTP %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, resp.ContentLength, maxBytes)
	}

	name := filenameFromContentDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = filenameFromURL(rawURL)
	}
	name = sanitizeFilename(name)
	if ext := extensionFor(name, rawURL, resp.Header.Get("Content-Type")); ext != "" &&
		!strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	savedPath = filepath.Join(destDir, name)
	out, err := os.Create(savedPath)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	n, err := io.Copy(out, io.LimitReader(resp.Body, maxBytes+1))
	if err == nil && n > maxBytes {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	if err != nil {
		out.Close()
		_ = os.Remove(savedPath)
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("download: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(savedPath)
		return "", fmt.Errorf("download: %w", err)
	}
	return savedPath, nil
}

// modelExts are the file types an asset URL may point at.
var modelExts = map[string]bool{".gltf": true, ".glb": true, ".zip": true, ".bin": true}

// extensionFor picks the extension to enforce on a saved file: the name's own
// if it is a model type, else the URL's, else one derived from Content-Type.
func extensionFor(name, rawURL, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(name)); modelExts[ext] {
		return ext
	}
	if ext := extensionFromURL(rawURL); ext != "" {
		return ext
	}
	return extensionFromContentType(contentType)
}

func filenameFromContentDisposition(cd string) string {
	cd = strings.TrimSpace(cd)
	if i := strings.Index(cd, "filename*=UTF-8''"); i >= 0 {
		s := cd[i+len("filename*=UTF-8''"):]
		if j := strings.IndexAny(s, ";\r\n"); j >= 0 {
			s = s[:j]
		}
		if dec, err := url.PathUnescape(s); err == nil {
			s = dec
		}
		return strings.Trim(s, "\"")
	}
	if i := strings.Index(cd, "filename="); i >= 0 {
		s := cd[i+len("filename="):]
		if j := strings.IndexAny(s, ";\r\n"); j >= 0 {
			s = s[:j]
		}
		return strings.Trim(s, "\" ")
	}
	return ""
}

func extensionFromContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	switch ct {
	case "model/gltf+json":
		return ".gltf"
	case "model/gltf-binary":
		return ".glb"
	case "application/zip", "application/x-zip-compressed":
		return ".zip"
	}
	return ""
}

func urlPath(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func extensionFromURL(rawURL string) string {
	ext := strings.ToLower(path.Ext(urlPath(rawURL)))
	if modelExts[ext] {
		return ext
	}
	return ""
}

func filenameFromURL(rawURL string) string {
	base := path.Base(urlPath(rawURL))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

var safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func sanitizeFilename(name string) string {
	name = safeNameRe.ReplaceAllString(filepath.Base(name), "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "asset"
	}
	if len(name) > 96 {
		name = name[:96]
	}
	return name
}
