package project

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultSkipDirs are infrastructure directories that never hold project
// content. Matched by directory name at any depth.
var defaultSkipDirs = []string{".git", ".godot", ".import", BackupDir, ".vscode", ".idea"}

// Walker enumerates project files in lexical order, skipping
// infrastructure directories and user exclude patterns.
type Walker struct {
	root     string
	skipDirs map[string]bool
	excludes []string
}

// WalkOption configures a Walker.
type WalkOption func(*Walker)

// WithExcludes adds doublestar patterns (matched against slash-separated
// project-relative paths) for files and directories to skip.
func WithExcludes(patterns ...string) WalkOption {
	return func(w *Walker) {
		w.excludes = append(w.excludes, patterns...)
	}
}

// WithSkipDirs adds directory names skipped at any depth.
func WithSkipDirs(names ...string) WalkOption {
	return func(w *Walker) {
		for _, n := range names {
			w.skipDirs[n] = true
		}
	}
}

// NewWalker creates a Walker rooted at root.
func NewWalker(root string, opts ...WalkOption) *Walker {
	w := &Walker{
		root:     root,
		skipDirs: make(map[string]bool, len(defaultSkipDirs)),
	}
	for _, d := range defaultSkipDirs {
		w.skipDirs[d] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the directory the Walker enumerates.
func (w *Walker) Root() string {
	return w.root
}

// Files returns the slash-separated project-relative paths of every
// regular file whose extension is in exts (all files when exts is
// empty), sorted.
func (w *Walker) Files(exts ...string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees contribute nothing.
			if d != nil && d.IsDir() && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if path == w.root {
			return nil
		}
		rel := Rel(w.root, path)
		if d.IsDir() {
			if w.skipDirs[d.Name()] || w.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || w.excluded(rel) {
			return nil
		}
		if len(exts) > 0 && !HasExt(path, exts...) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", w.root, err)
	}
	sort.Strings(out)
	return out, nil
}

// Dirs returns the project-relative directories Files descends into,
// sorted, with the root itself as "".
func (w *Walker) Dirs() ([]string, error) {
	out := []string{""}
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		if path == w.root || !d.IsDir() {
			return nil
		}
		rel := Rel(w.root, path)
		if w.skipDirs[d.Name()] || w.excluded(rel) {
			return filepath.SkipDir
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", w.root, err)
	}
	sort.Strings(out)
	return out, nil
}

// Ignored reports whether the slash-separated project-relative path rel
// lies in a skipped directory or under an excluded pattern.
func (w *Walker) Ignored(rel string) bool {
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		if w.skipDirs[p] || w.excluded(strings.Join(parts[:i+1], "/")) {
			return true
		}
	}
	return false
}

func (w *Walker) excluded(rel string) bool {
	for _, pattern := range w.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
