// Package testutils holds project fixtures shared by the package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tmplbuild/internal/config"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// WriteTree writes every file of a name to content map below root.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}
}

// SetMtime sets both the access and modification time of path.
func SetMtime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// NewProject creates a project with the packages javaclass (src) and
// javaclass.cheetah (src/cheetah) and returns its finalized configuration.
// mutate runs before Finalize.
func NewProject(t *testing.T, mutate func(cfg *config.Config)) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Root = root
	cfg.Packages = []string{"javaclass", "javaclass.cheetah"}
	cfg.PackageDirs = []config.PackageDir{
		{Package: "javaclass", Dir: "src"},
		{Package: "javaclass.cheetah", Dir: "src/cheetah"},
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "cheetah"), 0o755))

	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Finalize())
	return cfg
}

// AssertFileMode checks the permission bits of path.
func AssertFileMode(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, want, info.Mode().Perm(),
		"%s has mode %o, want %o", path, info.Mode().Perm(), want)
}

// WaitForFileChange fails the test unless path is modified after since
// within timeout.
func WaitForFileChange(t *testing.T, path string, since time.Time, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err == nil && info.ModTime().After(since) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("%s was not modified within %v", path, timeout)
}
