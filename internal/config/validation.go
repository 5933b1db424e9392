package config

import (
	"strings"

	"github.com/conneroisu/tmplbuild/internal/errors"
	"github.com/conneroisu/tmplbuild/internal/validation"
)

// Validate checks a configuration for correctness. Every problem found is
// reported, not just the first.
func Validate(c *Config) error {
	var vec errors.ValidationErrorCollection

	validatePackages(c, &vec)
	validateBuild(&c.Build, &vec)
	validateTemplates(&c.Templates, &vec)
	validateLint(&c.Lint, &vec)

	if c.Watch.Debounce < 0 {
		vec.AddField("watch.debounce", c.Watch.Debounce, "must not be negative")
	}

	return vec.ErrOrNil()
}

func validatePackages(c *Config, vec *errors.ValidationErrorCollection) {
	declared := make(map[string]bool, len(c.Packages))
	for _, pkg := range c.Packages {
		if err := ValidatePackageName(pkg); err != nil {
			vec.AddField("packages", pkg, err.Error())
			continue
		}
		if declared[pkg] {
			vec.AddField("packages", pkg, "declared more than once")
		}
		declared[pkg] = true
	}

	mapped := make(map[string]bool, len(c.PackageDirs))
	for _, d := range c.PackageDirs {
		if d.Package != "" {
			if err := ValidatePackageName(d.Package); err != nil {
				vec.AddField("package_dirs", d.Package, err.Error())
				continue
			}
		}
		if mapped[d.Package] {
			vec.AddField("package_dirs", d.Package, "mapped more than once")
		}
		mapped[d.Package] = true

		if err := validation.ValidatePath(d.Dir); d.Dir != "" && err != nil {
			vec.AddField("package_dirs", d.Dir, err.Error())
		}
	}

	for _, d := range c.PackageData {
		if !declared[d.Package] {
			vec.AddField("package_data", d.Package, "package is not declared in packages")
		}
	}

	for _, s := range c.Scripts {
		if strings.TrimSpace(s) == "" {
			vec.AddField("scripts", s, "script path cannot be empty")
		}
	}
}

func validateBuild(b *BuildConfig, vec *errors.ValidationErrorCollection) {
	if b.Optimize < 0 || b.Optimize > 2 {
		vec.AddField("build.optimize", b.Optimize, "must be 0, 1 or 2")
	}
}

func validateTemplates(t *TemplatesConfig, vec *errors.ValidationErrorCollection) {
	if t.Extension == "" {
		vec.AddField("templates.extension", t.Extension, "cannot be empty")
	}
	if t.SourceExtension == "" {
		vec.AddField("templates.source_extension", t.SourceExtension, "cannot be empty")
	}
	if t.Extension != "" && t.Extension == t.SourceExtension {
		vec.AddField("templates.extension", t.Extension, "must differ from the source extension")
	}
	if t.CompiledSuffix != "" && t.CompiledSuffix == t.OptimizedSuffix {
		vec.AddField("templates.optimized_suffix", t.OptimizedSuffix, "must differ from the compiled suffix")
	}

	words := strings.Fields(t.Command)
	if len(words) == 0 {
		vec.AddField("templates.command", t.Command, "cannot be empty")
		return
	}
	if err := validation.ValidateCommandLine(words); err != nil {
		vec.AddField("templates.command", t.Command, err.Error())
	}
}

func validateLint(l *LintConfig, vec *errors.ValidationErrorCollection) {
	switch l.Mode {
	case LintModeErrors, LintModeAll:
	default:
		vec.AddField("lint.mode", l.Mode, "must be one of: errors, all")
	}
	if l.ReportDir == "" {
		vec.AddField("lint.report_dir", l.ReportDir, "cannot be empty")
	}
}
