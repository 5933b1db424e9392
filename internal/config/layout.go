package config

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strings"
)

// Layout resolves dotted package names to source directories.
//
// A package without its own mapping inherits the directory of its nearest
// mapped parent, extended by the remaining name segments. With no mapping at
// all, the package lives at its segments joined under the root.
type Layout struct {
	root string
	dirs map[string]string
}

// NewLayout creates a layout rooted at root.
func NewLayout(root string, dirs []PackageDir) *Layout {
	m := make(map[string]string, len(dirs))
	for _, d := range dirs {
		m[d.Package] = d.Dir
	}
	if root == "" {
		root = "."
	}
	return &Layout{root: root, dirs: m}
}

// Dir returns the source directory of pkg.
func (l *Layout) Dir(pkg string) string {
	path := strings.Split(pkg, ".")
	var tail []string

	for len(path) > 0 {
		if dir, ok := l.dirs[strings.Join(path, ".")]; ok {
			return l.join(append([]string{dir}, tail...))
		}
		tail = append([]string{path[len(path)-1]}, tail...)
		path = path[:len(path)-1]
	}

	if dir, ok := l.dirs[""]; ok {
		tail = append([]string{dir}, tail...)
	}
	return l.join(tail)
}

func (l *Layout) join(parts []string) string {
	rel := filepath.Join(parts...)
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(l.root, rel)
}

// Segments splits a dotted package name into path segments.
func Segments(pkg string) []string {
	return strings.Split(pkg, ".")
}

// ValidatePackageName checks that every dotted segment is an identifier.
func ValidatePackageName(pkg string) error {
	if pkg == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	for _, seg := range Segments(pkg) {
		if !token.IsIdentifier(seg) {
			return fmt.Errorf("package %q has invalid segment %q", pkg, seg)
		}
	}
	return nil
}
