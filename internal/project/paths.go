// Package project locates files inside a Godot project tree and converts
// between filesystem paths and res:// URIs.
package project

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// ResScheme prefixes project-relative URIs.
	ResScheme = "res://"
	// UIDScheme prefixes content-addressed identifiers. They are never
	// resolved against the filesystem.
	UIDScheme = "uid://"

	// BackupDir holds structure-fix backups, relative to the project root.
	BackupDir = ".structure_fix"
)

// IsResURI reports whether p is a project-relative URI.
func IsResURI(p string) bool {
	return strings.HasPrefix(p, ResScheme)
}

// IsUID reports whether p is a content-addressed identifier.
func IsUID(p string) bool {
	return strings.HasPrefix(p, UIDScheme)
}

// FromURI strips the res:// scheme and returns the slash-separated
// project-relative path.
func FromURI(uri string) (string, bool) {
	rel, ok := strings.CutPrefix(uri, ResScheme)
	return rel, ok
}

// ToURI converts a project-relative path into a res:// URI.
func ToURI(rel string) string {
	return ResScheme + filepath.ToSlash(rel)
}

// Resolve maps a res:// URI onto the filesystem under root. Returns
// ("", false) for any other scheme.
func Resolve(root, uri string) (string, bool) {
	rel, ok := FromURI(uri)
	if !ok {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(rel)), true
}

// Exists reports whether a res:// URI points at an existing file or
// directory. URIs with other schemes report false.
func Exists(root, uri string) bool {
	abs, ok := Resolve(root, uri)
	if !ok {
		return false
	}
	_, err := os.Stat(abs)
	return err == nil
}

// Rel returns path relative to root with forward slashes. Falls back to
// the slash form of path when it is not under root.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// HasExt reports whether path has one of exts (compared case-insensitively,
// exts given with leading dot).
func HasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
