//go:build property
// +build property

package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/tmplbuild/internal/config"
)

// TestDiscoveryProperties checks that every template written to a package
// directory is found exactly once, in sorted order.
func TestDiscoveryProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("discovery finds exactly the written templates", prop.ForAll(
		func(names []string) bool {
			root := t.TempDir()
			dir := filepath.Join(root, "pkg")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return false
			}

			unique := make(map[string]bool)
			for _, n := range names {
				unique[n] = true
				if err := os.WriteFile(filepath.Join(dir, n+".templ"), nil, 0o644); err != nil {
					return false
				}
				// decoys that must be ignored
				_ = os.WriteFile(filepath.Join(dir, n+".go"), nil, 0o644)
			}

			finder := NewFinder(config.NewLayout(root, nil), ".templ")
			found, err := finder.FindTemplates("pkg", dir)
			if err != nil || len(found) != len(unique) {
				return false
			}

			modules := make([]string, 0, len(found))
			for _, tf := range found {
				if !unique[tf.ModuleName] || tf.Package != "pkg" {
					return false
				}
				modules = append(modules, tf.ModuleName)
			}
			return sort.StringsAreSorted(modules)
		},
		gen.SliceOfN(6, gen.RegexMatch(`^[a-z][a-z0-9_]{0,8}$`)),
	))

	properties.TestingRun(t)
}
