package build

import (
	"sync"

	"github.com/conneroisu/tmplbuild/internal/errors"
)

// Manifest is the ordered list of generated artifact paths of one build run.
// Appending an already recorded path keeps the first entry. Once sealed the
// manifest is read-only.
type Manifest struct {
	mu     sync.RWMutex
	paths  []string
	seen   map[string]struct{}
	sealed bool
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{seen: make(map[string]struct{})}
}

// Add records path. It reports whether the path was new.
func (m *Manifest) Add(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		return false, errors.NewInternalError(errors.ErrCodeManifestSealed,
			"manifest is sealed", nil).WithFile(path)
	}
	if _, ok := m.seen[path]; ok {
		return false, nil
	}
	m.seen[path] = struct{}{}
	m.paths = append(m.paths, path)
	return true, nil
}

// Paths returns a copy of the recorded paths in insertion order.
func (m *Manifest) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// Len returns the number of recorded paths.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.paths)
}

// Seal makes the manifest read-only.
func (m *Manifest) Seal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sealed = true
}

// Sealed reports whether Seal has been called.
func (m *Manifest) Sealed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sealed
}
