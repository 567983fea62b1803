// Package scan discovers and loads the code files Umbra analyzes.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WatchExtensions are the file types Umbra understands.
var WatchExtensions = map[string]bool{
	".py":  true,
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
}

// IgnoreDirs are path segments that exclude a file from scanning and
// watching. The output directory is excluded so Umbra never analyzes its
// own artifacts.
var IgnoreDirs = map[string]bool{
	"__pycache__":    true,
	".git":           true,
	".venv":          true,
	"venv":           true,
	"env":            true,
	".env":           true,
	"node_modules":   true,
	".pytest_cache":  true,
	".ruff_cache":    true,
	"__pypackages__": true,
	"dist":           true,
	"build":          true,
	".next":          true,
	"output":         true,
}

// File is a discovered code file with its content loaded.
type File struct {
	// Path is absolute.
	Path string
	// Rel is the path relative to the scan root, slash-separated.
	Rel     string
	Content string
	Lines   int
}

// Ignored reports whether a path should be excluded, either by extension
// or because one of its directory segments is on the ignore list.
func Ignored(path string) bool {
	if !WatchExtensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if IgnoreDirs[part] {
			return true
		}
	}
	return false
}

// Discover walks root and returns the relative paths of all code files,
// sorted for deterministic processing order.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if IgnoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if Ignored(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// maxReaders bounds concurrent file reads during a full project load.
const maxReaders = 8

// Load discovers and reads every code file under root. Files that cannot
// be read are dropped silently; a scan should never fail because one file
// had bad permissions.
func Load(root string) ([]File, error) {
	paths, err := Discover(root)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	files := make([]File, len(paths))
	ok := make([]bool, len(paths))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(maxReaders)
	for i, rel := range paths {
		g.Go(func() error {
			data, readErr := os.ReadFile(filepath.Join(absRoot, filepath.FromSlash(rel)))
			if readErr != nil {
				return nil
			}
			content := string(data)
			mu.Lock()
			files[i] = File{
				Path:    filepath.Join(absRoot, filepath.FromSlash(rel)),
				Rel:     rel,
				Content: content,
				Lines:   len(strings.Split(content, "\n")),
			}
			ok[i] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := files[:0]
	for i := range files {
		if ok[i] {
			loaded = append(loaded, files[i])
		}
	}
	return loaded, nil
}
