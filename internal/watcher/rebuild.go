package watcher

import (
	"context"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/logging"
)

// BuildFunc performs one full build.
type BuildFunc func(ctx context.Context) error

// PackageDirs returns the existing source directories of every declared
// package, without duplicates.
func PackageDirs(cfg *config.Config) []string {
	layout := cfg.Layout()
	seen := make(map[string]bool)
	var dirs []string
	for _, pkg := range cfg.Packages {
		dir := layout.Dir(pkg)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// RebuildHandler runs build after every batch of changes.
func RebuildHandler(build BuildFunc, logger logging.Logger) ChangeHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(ctx context.Context, events []ChangeEvent) error {
		paths := make([]string, 0, len(events))
		for _, e := range events {
			paths = append(paths, e.Path)
		}
		logger.Info(ctx, "sources changed, rebuilding", "files", paths)

		op := logging.StartOperation(logger, "rebuild")
		if err := build(ctx); err != nil {
			op.EndWithError(ctx, err)
			return err
		}
		op.End(ctx)
		return nil
	}
}

// SourceFilters selects the files whose changes affect the build output:
// templates and the ordinary sources the base step copies. Test files and
// dot files are ignored.
func SourceFilters(cfg *config.Config) []FileFilter {
	return []FileFilter{
		ExtensionFilter(cfg.Templates.Extension, cfg.Templates.SourceExtension),
		NoTestFilter,
		NoHiddenFilter,
	}
}

// Watch watches the package directories of cfg and calls build whenever a
// template or copied source changes. It blocks until ctx is cancelled.
func Watch(ctx context.Context, cfg *config.Config, build BuildFunc, logger logging.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}

	fw, err := NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	for _, filter := range SourceFilters(cfg) {
		fw.AddFilter(filter)
	}
	fw.AddHandler(RebuildHandler(build, logger))

	for _, dir := range PackageDirs(cfg) {
		if err := fw.AddPath(dir); err != nil {
			return err
		}
	}

	if err := fw.Start(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "watching for template changes", "dirs", fw.WatchList())

	<-ctx.Done()
	return nil
}
