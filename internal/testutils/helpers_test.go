package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTree(t *testing.T) {
	root := t.TempDir()
	WriteTree(t, root, map[string]string{
		"a.txt":     "a",
		"sub/b.txt": "b",
	})

	content, err := os.ReadFile(filepath.Join(root, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(content))
	AssertFileMode(t, filepath.Join(root, "a.txt"), 0o644)
}

func TestNewProject(t *testing.T) {
	cfg := NewProject(t, nil)

	assert.DirExists(t, filepath.Join(cfg.Root, "src", "cheetah"))
	assert.Equal(t, []string{"javaclass", "javaclass.cheetah"}, cfg.Packages)
	assert.True(t, filepath.IsAbs(cfg.Build.BuildLib))
}

func TestWaitForFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	WriteFile(t, path, "x")
	past := time.Now().Add(-time.Hour)
	SetMtime(t, path, past)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.Chtimes(path, time.Now(), time.Now())
	}()
	WaitForFileChange(t, path, past, 2*time.Second)
}
