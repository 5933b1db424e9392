package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/errors"
	"github.com/conneroisu/tmplbuild/internal/testutils"
)

var writeFile = testutils.WriteFile

func newFinder(root string) *Finder {
	layout := config.NewLayout(root, []config.PackageDir{
		{Package: "javaclass", Dir: "src"},
		{Package: "javaclass.cheetah", Dir: "src/cheetah"},
	})
	return NewFinder(layout, ".templ")
}

func TestFindTemplates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "cheetah", "report.templ"), "report")
	writeFile(t, filepath.Join(root, "src", "cheetah", "index.templ"), "index")
	writeFile(t, filepath.Join(root, "src", "cheetah", "helpers.go"), "package cheetah")
	writeFile(t, filepath.Join(root, "src", "cheetah", "data", "nested.templ"), "nested")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "cheetah", "dir.templ"), 0o755))

	finder := newFinder(root)
	dir := finder.PackageDir("javaclass.cheetah")

	templates, err := finder.FindTemplates("javaclass.cheetah", dir)
	require.NoError(t, err)

	require.Len(t, templates, 2)
	assert.Equal(t, TemplateFile{
		Package:    "javaclass.cheetah",
		SourcePath: filepath.Join(dir, "index.templ"),
		ModuleName: "index",
	}, templates[0])
	assert.Equal(t, "report", templates[1].ModuleName)
}

func TestFindTemplatesEmptyPackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.go"), "package javaclass")

	finder := newFinder(root)
	templates, err := finder.FindTemplates("javaclass", finder.PackageDir("javaclass"))

	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestFindTemplatesNormalizesModuleName(t *testing.T) {
	root := t.TempDir()
	// decomposed form: "e" followed by a combining acute accent
	writeFile(t, filepath.Join(root, "src", "cafe\u0301.templ"), "x")

	finder := newFinder(root)
	templates, err := finder.FindTemplates("javaclass", finder.PackageDir("javaclass"))
	require.NoError(t, err)

	require.Len(t, templates, 1)
	assert.Equal(t, "caf\u00e9", templates[0].ModuleName)
}

func TestFindTemplatesConfigurationErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "file"), "not a dir")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "other"), 0o755))

	tests := []struct {
		name string
		pkg  string
		dir  func(f *Finder) string
		code string
	}{
		{
			name: "invalid package name",
			pkg:  "java-class",
			dir:  func(f *Finder) string { return filepath.Join(root, "src") },
			code: errors.ErrCodeInvalidPackage,
		},
		{
			name: "directory does not match package",
			pkg:  "javaclass",
			dir:  func(f *Finder) string { return filepath.Join(root, "other") },
			code: errors.ErrCodePackageDirMismatch,
		},
		{
			name: "missing directory",
			pkg:  "javaclass.cheetah",
			dir:  func(f *Finder) string { return f.PackageDir("javaclass.cheetah") },
			code: errors.ErrCodePackageDirMissing,
		},
		{
			name: "not a directory",
			pkg:  "javaclass.file",
			dir:  func(f *Finder) string { return f.PackageDir("javaclass.file") },
			code: errors.ErrCodePackageDirNotDir,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := newFinder(root)

			templates, err := finder.FindTemplates(tt.pkg, tt.dir(finder))

			require.Error(t, err)
			assert.Nil(t, templates)
			assert.True(t, errors.IsConfigurationError(err))

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestFindTemplatesDoesNotWrite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "page.templ"), "page")

	before, err := os.ReadDir(filepath.Join(root, "src"))
	require.NoError(t, err)

	finder := newFinder(root)
	_, err = finder.FindTemplates("javaclass", finder.PackageDir("javaclass"))
	require.NoError(t, err)

	after, err := os.ReadDir(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}
