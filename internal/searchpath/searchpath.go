// Package searchpath holds the process-wide module search path consulted by
// the analysis engine when it resolves dotted package names to directories.
//
// The path is shared mutable state. Callers that need a temporary entry use
// a Guard, which pushes on Enter and removes the same entry on Exit:
//
//	g := searchpath.NewGuard(searchpath.Default, buildLib)
//	g.Enter()
//	defer g.Exit()
package searchpath

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EnvVar seeds Default at process start, in os.PathListSeparator form.
const EnvVar = "TMPLBUILD_PATH"

// Default is the process-wide search path.
var Default = FromEnv(EnvVar)

// Path is an ordered list of root directories. Earlier entries win.
type Path struct {
	mu      sync.Mutex
	entries []string
}

// New returns a Path holding the given entries in order.
func New(entries ...string) *Path {
	p := &Path{}
	for _, e := range entries {
		if e != "" {
			p.entries = append(p.entries, e)
		}
	}
	return p
}

// FromEnv builds a Path from the list stored in the named environment
// variable. An unset variable yields an empty path.
func FromEnv(name string) *Path {
	return New(filepath.SplitList(os.Getenv(name))...)
}

// Entries returns a copy of the current entries.
func (p *Path) Entries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of entries.
func (p *Path) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Push inserts dir at the front of the path.
func (p *Path) Push(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append([]string{dir}, p.entries...)
}

// Remove deletes the first occurrence of dir and reports whether one was
// found.
func (p *Path) Remove(dir string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, e := range p.entries {
		if e == dir {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return true
		}
	}
	return false
}

// String renders the path the way it is read from the environment.
func (p *Path) String() string {
	return strings.Join(p.Entries(), string(os.PathListSeparator))
}

// Resolve returns the first root under which the dotted package name exists
// as a directory, and the package directory itself.
func (p *Path) Resolve(pkg string) (root, dir string, ok bool) {
	rel := filepath.Join(strings.Split(pkg, ".")...)
	for _, r := range p.Entries() {
		candidate := filepath.Join(r, rel)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return r, candidate, true
		}
	}
	return "", "", false
}

// Guard scopes one temporary entry on a Path.
type Guard struct {
	path    *Path
	dir     string
	entered bool
}

// NewGuard returns a guard that will push dir onto path.
func NewGuard(path *Path, dir string) *Guard {
	return &Guard{path: path, dir: dir}
}

// Enter pushes the guarded directory to the front of the path. Entering an
// already entered guard does nothing.
func (g *Guard) Enter() {
	if g.entered {
		return
	}
	g.path.Push(g.dir)
	g.entered = true
}

// Exit removes the entry pushed by Enter. It is safe to call more than once
// and safe to call when Enter never ran.
func (g *Guard) Exit() {
	if !g.entered {
		return
	}
	g.path.Remove(g.dir)
	g.entered = false
}

// Active reports whether the guard currently holds its entry.
func (g *Guard) Active() bool {
	return g.entered
}
