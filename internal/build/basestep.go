package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/errors"
	"github.com/conneroisu/tmplbuild/internal/logging"
)

// BaseStep is the ordinary part of a build: everything that is not a
// template. The orchestrator runs it after templates are generated and
// extends its outputs.
type BaseStep interface {
	Run(ctx context.Context) error
	Outputs(includeBytecode bool) []string
}

// moduleFiles are copied from the project root so the build-lib tree can be
// loaded as a module by analysis tools.
var moduleFiles = []string{"go.mod", "go.sum"}

type copyKind int

const (
	copySource copyKind = iota
	copyData
	copyModule
	copyScript
)

type copyOp struct {
	kind copyKind
	pkg  string
	src  string
	dst  string
}

// CopyStep copies ordinary sources, package data, module files and scripts
// into the build directories.
type CopyStep struct {
	cfg     *config.Config
	layout  *config.Layout
	logger  logging.Logger
	metrics *Metrics
}

// NewCopyStep creates the default base step for cfg.
func NewCopyStep(cfg *config.Config, logger logging.Logger, metrics *Metrics) *CopyStep {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CopyStep{
		cfg:     cfg,
		layout:  cfg.Layout(),
		logger:  logger.WithComponent("copy"),
		metrics: metrics,
	}
}

// Run copies every planned file whose target is missing or older than the
// source.
func (s *CopyStep) Run(ctx context.Context) error {
	ops, err := s.plan()
	if err != nil {
		return err
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}

		stale := s.cfg.Build.Force
		if !stale {
			if stale, err = Newer(op.src, op.dst); err != nil {
				return err
			}
		}
		if !stale {
			s.logger.Debug(ctx, "not copying (output up-to-date)", "file", op.src)
			s.metrics.IncFile(ResultSkipped)
			continue
		}

		if err := copyFile(op.src, op.dst); err != nil {
			s.metrics.IncFile(ResultFailed)
			return errors.NewIOError(errors.ErrCodeWriteFailed, "cannot copy file", err).
				WithPackage(op.pkg).WithFile(op.src)
		}
		s.logger.Debug(ctx, "copied", "file", op.src, "output", op.dst)
		s.metrics.IncFile(ResultCopied)
	}

	return nil
}

// Outputs lists every file the step produces. Bytecode variants follow each
// source file when includeBytecode is set.
func (s *CopyStep) Outputs(includeBytecode bool) []string {
	ops, err := s.plan()
	if err != nil {
		s.logger.Warn(context.Background(), err, "incomplete output list")
	}

	var outputs []string
	for _, op := range ops {
		outputs = append(outputs, op.dst)
		if op.kind == copySource && includeBytecode {
			outputs = append(outputs, BytecodeVariants(op.dst, s.cfg)...)
		}
	}
	return outputs
}

// BytecodeVariants returns the compiled and optimized names tracked for a
// generated or copied source file.
func BytecodeVariants(path string, cfg *config.Config) []string {
	var out []string
	if cfg.Build.Compile {
		out = append(out, path+cfg.Templates.CompiledSuffix)
	}
	if cfg.Build.Optimize > 0 {
		out = append(out, path+cfg.Templates.OptimizedSuffix)
	}
	return out
}

// plan lists copy operations in a stable order: per package its sources then
// its data files, followed by module files and scripts.
func (s *CopyStep) plan() ([]copyOp, error) {
	var ops []copyOp

	for _, pkg := range s.cfg.Packages {
		dir := s.layout.Dir(pkg)
		outDir := filepath.Join(append([]string{s.cfg.Build.BuildLib}, config.Segments(pkg)...)...)

		sources, err := s.packageSources(pkg, dir)
		if err != nil {
			return ops, err
		}
		for _, name := range sources {
			ops = append(ops, copyOp{kind: copySource, pkg: pkg, src: filepath.Join(dir, name), dst: filepath.Join(outDir, name)})
		}

		data, err := s.packageData(pkg, dir)
		if err != nil {
			return ops, err
		}
		for _, rel := range data {
			ops = append(ops, copyOp{kind: copyData, pkg: pkg, src: filepath.Join(dir, rel), dst: filepath.Join(outDir, rel)})
		}
	}

	if len(s.cfg.Packages) > 0 {
		for _, name := range moduleFiles {
			src := s.cfg.Path(name)
			if info, err := os.Stat(src); err == nil && info.Mode().IsRegular() {
				ops = append(ops, copyOp{kind: copyModule, src: src, dst: filepath.Join(s.cfg.Build.BuildLib, name)})
			}
		}
	}

	for _, script := range s.cfg.Scripts {
		ops = append(ops, copyOp{
			kind: copyScript,
			src:  s.cfg.Path(script),
			dst:  filepath.Join(s.cfg.Build.BuildScripts, filepath.Base(script)),
		})
	}

	return ops, nil
}

// packageSources lists ordinary source files directly in dir, excluding
// test files.
func (s *CopyStep) packageSources(pkg, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewConfigurationError(errors.ErrCodePackageDirMissing,
			"package directory does not exist", err).WithPackage(pkg).WithFile(dir)
	}

	ext := s.cfg.Templates.SourceExtension
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) || strings.HasSuffix(name, "_test"+ext) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// packageData expands the package_data patterns of pkg into paths relative
// to dir.
func (s *CopyStep) packageData(pkg, dir string) ([]string, error) {
	seen := make(map[string]bool)
	var rels []string

	for _, pattern := range s.cfg.DataPatterns(pkg) {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.NewConfigurationError(errors.ErrCodeConfigInvalid,
				"invalid package_data pattern "+pattern, err).WithPackage(pkg)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			rel, err := filepath.Rel(dir, m)
			if err != nil || seen[rel] {
				continue
			}
			seen[rel] = true
			rels = append(rels, rel)
		}
	}

	sort.Strings(rels)
	return rels, nil
}

// copyFile copies src to dst, creating parent directories and carrying over
// the source mode and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
