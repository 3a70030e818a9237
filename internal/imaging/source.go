// Package imaging enumerates candidate receipt images and normalizes their
// size before extraction.
package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kanri/internal/core"
)

// DefaultDir is used when the caller supplies no folder path.
const DefaultDir = "images"

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Supported reports whether the filename carries a supported image extension.
func Supported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// ListFolder returns the sorted paths of supported images directly inside dir.
// Subdirectories (including the archive) are not descended into. An empty dir
// falls back to DefaultDir. A scan that yields zero candidates fails with
// ErrNoImagesFound: that is a hard stop for the batch, not a per-item failure.
func ListFolder(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image folder %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("folder %s: %w", dir, core.ErrNoImagesFound)
	}
	return paths, nil
}

// NormalizeFile reads an image file, downsizes it when oversized, and
// persists the resized bytes back to the same path. The returned bytes are
// what should be handed to extraction.
func NormalizeFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}

	resized, changed, err := downscale(data)
	if err != nil {
		return nil, fmt.Errorf("normalizing image %s: %w", path, err)
	}
	if changed {
		if err := os.WriteFile(path, resized, 0644); err != nil {
			return nil, fmt.Errorf("persisting resized image %s: %w", path, err)
		}
	}
	return resized, nil
}

// NormalizeBytes downsizes an in-memory image when oversized. No file is
// touched; single-image intake has no durable source.
func NormalizeBytes(data []byte) ([]byte, error) {
	resized, _, err := downscale(data)
	if err != nil {
		return nil, fmt.Errorf("normalizing image buffer: %w", err)
	}
	return resized, nil
}

// Archive moves a processed image into the named subdirectory of its folder
// so the next batch run does not pick it up again.
func Archive(path, archiveDir string) (string, error) {
	dest := filepath.Join(filepath.Dir(path), archiveDir)
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("creating archive directory %s: %w", dest, err)
	}
	target := filepath.Join(dest, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("archiving %s: %w", path, err)
	}
	return target, nil
}
