// Package scanner discovers template files belonging to declared packages.
//
// Discovery is deliberately shallow: only files directly inside a package's
// source directory are considered, matching the one-directory-per-package
// layout of the build. Sub-directories are separate packages and are found
// when those packages are scanned.
package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/errors"
)

// TemplateFile is one template discovered inside a package directory.
type TemplateFile struct {
	// Package is the dotted name of the owning package
	Package string
	// SourcePath is the location of the template file on disk
	SourcePath string
	// ModuleName is the file name without the template extension
	ModuleName string
}

// Finder locates template files for packages described by a Layout.
type Finder struct {
	// layout resolves the directory each package is expected to live in
	layout *config.Layout
	// extension is the template suffix, including the leading dot
	extension string
}

// NewFinder creates a finder for templates ending in extension.
func NewFinder(layout *config.Layout, extension string) *Finder {
	return &Finder{layout: layout, extension: extension}
}

// Extension returns the template suffix the finder matches.
func (f *Finder) Extension() string {
	return f.extension
}

// PackageDir resolves the source directory of pkg.
func (f *Finder) PackageDir(pkg string) string {
	return f.layout.Dir(pkg)
}

// FindTemplates returns the templates directly inside dir, sorted by file
// name. The package/directory pair is checked against the layout first; a
// mismatch, a missing directory or a non-directory is a configuration error.
func (f *Finder) FindTemplates(pkg, dir string) ([]TemplateFile, error) {
	if err := f.CheckPackage(pkg, dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStatFailed, "cannot read package directory", err).
			WithPackage(pkg).WithFile(dir)
	}

	var templates []TemplateFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, f.extension) {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			// follow links, a link to a directory is not a template
			if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.IsDir() {
				continue
			}
		}
		module := strings.TrimSuffix(name, f.extension)
		if module == "" {
			continue
		}

		templates = append(templates, TemplateFile{
			Package:    pkg,
			SourcePath: filepath.Join(dir, name),
			ModuleName: norm.NFC.String(module),
		})
	}

	return templates, nil
}

// CheckPackage validates that dir is the existing source directory of pkg.
func (f *Finder) CheckPackage(pkg, dir string) error {
	if err := config.ValidatePackageName(pkg); err != nil {
		return errors.NewConfigurationError(errors.ErrCodeInvalidPackage, "invalid package name", err).
			WithPackage(pkg)
	}

	want := f.layout.Dir(pkg)
	if filepath.Clean(dir) != filepath.Clean(want) {
		return errors.NewConfigurationError(errors.ErrCodePackageDirMismatch,
			"directory "+dir+" does not correspond to package (expected "+want+")", nil).
			WithPackage(pkg)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return errors.NewConfigurationError(errors.ErrCodePackageDirMissing,
			"package directory does not exist", err).WithPackage(pkg).WithFile(dir)
	}
	if !info.IsDir() {
		return errors.NewConfigurationError(errors.ErrCodePackageDirNotDir,
			"package directory exists, but is not a directory", nil).WithPackage(pkg).WithFile(dir)
	}

	return nil
}
