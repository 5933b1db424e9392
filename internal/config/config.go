// Package config provides configuration management for tmplbuild using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// A Config is loaded once, then finalized: derived build directories are
// filled in relative to the project root and the result is validated. The
// finalized value is shared by pointer between the build and lint steps so
// both always observe the same packages, scripts and directories.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete build configuration.
type Config struct {
	Root        string        `mapstructure:"root" yaml:"root" json:"root"`
	Packages    []string      `mapstructure:"packages" yaml:"packages" json:"packages"`
	PackageDirs []PackageDir  `mapstructure:"package_dirs" yaml:"package_dirs,omitempty" json:"package_dirs,omitempty"`
	PackageData []PackageData `mapstructure:"package_data" yaml:"package_data,omitempty" json:"package_data,omitempty"`
	Scripts     []string      `mapstructure:"scripts" yaml:"scripts,omitempty" json:"scripts,omitempty"`

	Build     BuildConfig     `mapstructure:"build" yaml:"build" json:"build"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates" json:"templates"`
	Lint      LintConfig      `mapstructure:"lint" yaml:"lint" json:"lint"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch" json:"watch"`

	finalized bool
}

// PackageDir maps a dotted package name to its source directory. The empty
// package name maps the root package.
type PackageDir struct {
	Package string `mapstructure:"package" yaml:"package" json:"package"`
	Dir     string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// PackageData lists glob patterns, relative to the package directory, of
// extra files shipped with a package.
type PackageData struct {
	Package  string   `mapstructure:"package" yaml:"package" json:"package"`
	Patterns []string `mapstructure:"patterns" yaml:"patterns" json:"patterns"`
}

// BuildConfig mirrors the options of the base build step.
type BuildConfig struct {
	BuildBase    string `mapstructure:"build_base" yaml:"build_base" json:"build_base"`
	BuildLib     string `mapstructure:"build_lib" yaml:"build_lib" json:"build_lib"`
	BuildScripts string `mapstructure:"build_scripts" yaml:"build_scripts" json:"build_scripts"`
	Compile      bool   `mapstructure:"compile" yaml:"compile" json:"compile"`
	Optimize     int    `mapstructure:"optimize" yaml:"optimize" json:"optimize"`
	Force        bool   `mapstructure:"force" yaml:"force" json:"force"`
}

// TemplatesConfig controls template discovery and compilation.
type TemplatesConfig struct {
	Extension       string `mapstructure:"extension" yaml:"extension" json:"extension"`
	SourceExtension string `mapstructure:"source_extension" yaml:"source_extension" json:"source_extension"`
	CompiledSuffix  string `mapstructure:"compiled_suffix" yaml:"compiled_suffix" json:"compiled_suffix"`
	OptimizedSuffix string `mapstructure:"optimized_suffix" yaml:"optimized_suffix" json:"optimized_suffix"`
	Command         string `mapstructure:"command" yaml:"command" json:"command"`
}

// LintConfig controls the lint step.
type LintConfig struct {
	Mode      string `mapstructure:"mode" yaml:"mode" json:"mode"`
	ReportDir string `mapstructure:"report_dir" yaml:"report_dir" json:"report_dir"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

// Lint report modes.
const (
	LintModeErrors = "errors"
	LintModeAll    = "all"
)

// Default returns a configuration holding every default value.
func Default() *Config {
	return &Config{
		Root: ".",
		Build: BuildConfig{
			BuildBase: "build",
			Compile:   true,
		},
		Templates: TemplatesConfig{
			Extension:       ".templ",
			SourceExtension: ".go",
			CompiledSuffix:  "c",
			OptimizedSuffix: "o",
			Command:         "templ generate -stdout -f {source}",
		},
		Lint: LintConfig{
			Mode:      LintModeErrors,
			ReportDir: "lint",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// SetDefaults registers the scalar defaults on v, which lets environment
// variables override keys no config file mentions.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("root", d.Root)
	v.SetDefault("build.build_base", d.Build.BuildBase)
	v.SetDefault("build.build_lib", d.Build.BuildLib)
	v.SetDefault("build.build_scripts", d.Build.BuildScripts)
	v.SetDefault("build.compile", d.Build.Compile)
	v.SetDefault("build.optimize", d.Build.Optimize)
	v.SetDefault("build.force", d.Build.Force)
	v.SetDefault("templates.extension", d.Templates.Extension)
	v.SetDefault("templates.source_extension", d.Templates.SourceExtension)
	v.SetDefault("templates.compiled_suffix", d.Templates.CompiledSuffix)
	v.SetDefault("templates.optimized_suffix", d.Templates.OptimizedSuffix)
	v.SetDefault("templates.command", d.Templates.Command)
	v.SetDefault("lint.mode", d.Lint.Mode)
	v.SetDefault("lint.report_dir", d.Lint.ReportDir)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Load reads the configuration from the global viper instance and finalizes
// it.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v and finalizes it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// viper hands back string slices for comma-separated env values
	if v.IsSet("packages") && len(cfg.Packages) == 0 {
		cfg.Packages = v.GetStringSlice("packages")
	}
	if v.IsSet("scripts") && len(cfg.Scripts) == 0 {
		cfg.Scripts = v.GetStringSlice("scripts")
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Finalize fills derived values and validates the result. The project root
// and every build directory become absolute. It is idempotent.
func (c *Config) Finalize() error {
	if c.finalized {
		return nil
	}

	if c.Root == "" {
		c.Root = "."
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("cannot resolve project root %q: %w", c.Root, err)
	}
	c.Root = root

	if c.Build.BuildBase == "" {
		c.Build.BuildBase = "build"
	}
	c.Build.BuildBase = c.Path(c.Build.BuildBase)

	if c.Build.BuildLib == "" {
		c.Build.BuildLib = filepath.Join(c.Build.BuildBase, "lib")
	} else {
		c.Build.BuildLib = c.Path(c.Build.BuildLib)
	}
	if c.Build.BuildScripts == "" {
		c.Build.BuildScripts = filepath.Join(c.Build.BuildBase, "scripts")
	} else {
		c.Build.BuildScripts = c.Path(c.Build.BuildScripts)
	}

	c.Templates.Extension = normalizeExt(c.Templates.Extension)
	c.Templates.SourceExtension = normalizeExt(c.Templates.SourceExtension)
	c.Lint.Mode = strings.ToLower(strings.TrimSpace(c.Lint.Mode))

	if err := Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.finalized = true
	return nil
}

// Finalized reports whether Finalize has completed successfully.
func (c *Config) Finalized() bool {
	return c.finalized
}

// Path resolves p against the project root unless it is absolute.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// Layout returns the package directory resolver for this configuration.
func (c *Config) Layout() *Layout {
	return NewLayout(c.Root, c.PackageDirs)
}

// ReportPath is where lint reports belong.
func (c *Config) ReportPath() string {
	return filepath.Join(c.Build.BuildBase, c.Lint.ReportDir)
}

// BuiltScripts returns the locations of the declared scripts once copied
// into the build-scripts directory.
func (c *Config) BuiltScripts() []string {
	out := make([]string, 0, len(c.Scripts))
	for _, s := range c.Scripts {
		out = append(out, filepath.Join(c.Build.BuildScripts, filepath.Base(s)))
	}
	return out
}

// DataPatterns returns the package_data patterns declared for pkg.
func (c *Config) DataPatterns(pkg string) []string {
	var out []string
	for _, d := range c.PackageData {
		if d.Package == pkg {
			out = append(out, d.Patterns...)
		}
	}
	return out
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
