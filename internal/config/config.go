package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/arnavsurve/cargo-xcframework/internal/manifest"
	"github.com/arnavsurve/cargo-xcframework/internal/modulemap"
	"github.com/arnavsurve/cargo-xcframework/internal/platform"
)

// Options are the command line overrides.
type Options struct {
	ManifestPath      string
	ConfigPath        string
	Package           string
	LibType           string
	TargetDir         string
	Profile           string
	Release           bool
	Features          []string
	AllFeatures       bool
	NoDefaultFeatures bool
	UnstableFlags     []string
	NoZip             bool
	Quiet             bool
	Verbose           int
}

// CargoArgs are passed through to `cargo build` unchanged.
type CargoArgs struct {
	Features          []string `json:"features,omitempty"`
	AllFeatures       bool     `json:"all_features,omitempty"`
	NoDefaultFeatures bool     `json:"no_default_features,omitempty"`
	UnstableFlags     []string `json:"unstable_flags,omitempty"`
	Quiet             bool     `json:"quiet,omitempty"`
	Verbose           int      `json:"verbose,omitempty"`
}

// PlatformTargets is one enabled platform slice and the triples merged into it.
type PlatformTargets struct {
	Platform platform.Platform `json:"platform"`
	Targets  []platform.Target `json:"targets"`
}

// Configuration is the validated build configuration for one run.
type Configuration struct {
	Package    *manifest.Package `json:"package"`
	LibName    string            `json:"lib_name"`
	LibKind    LibKind           `json:"lib_type"`
	IncludeDir string            `json:"include_dir"`
	Platforms  []PlatformTargets `json:"platforms"`
	TargetDir  string            `json:"target_dir"`
	BuildDir   string            `json:"build_dir"`
	OutputDir  string            `json:"output_dir"`
	Zip        bool              `json:"zip"`
	Profile    string            `json:"profile"`
	Cargo      CargoArgs         `json:"cargo"`

	moduleName func() (string, error)
}

// ModuleName is the bundle name: the explicit module-name, or the name
// declared in the include directory's modulemap. Computed once.
func (c *Configuration) ModuleName() (string, error) {
	return c.moduleName()
}

// Targets returns every chosen target in platform order.
func (c *Configuration) Targets() []platform.Target {
	var out []platform.Target
	for _, pt := range c.Platforms {
		out = append(out, pt.Targets...)
	}
	return out
}

func (c *Configuration) LibsDir() string {
	return filepath.Join(c.BuildDir, "libs")
}

func (c *Configuration) FrameworksDir() string {
	return filepath.Join(c.BuildDir, "frameworks")
}

// LibFileName is the file name cargo gives the built library.
func (c *Configuration) LibFileName() string {
	return "lib" + strings.ReplaceAll(c.LibName, "-", "_") + "." + c.LibKind.Ext()
}

type runner interface {
	RunSilent(ctx context.Context, name string, args []string) ([]byte, error)
}

// Load reads cargo metadata and every config source, then resolves them.
func Load(ctx context.Context, r runner, cargo string, opts Options) (*Configuration, error) {
	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = "Cargo.toml"
	}

	pkg, err := manifest.Load(ctx, r, cargo, manifestPath, opts.Package)
	if err != nil {
		return nil, err
	}

	file, err := LoadSources(pkg.ManifestPath, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	return Resolve(pkg, file, opts)
}

// Resolve validates the merged config against the package and overrides.
func Resolve(pkg *manifest.Package, file *File, opts Options) (*Configuration, error) {
	var wanted *LibKind
	switch {
	case opts.LibType != "":
		k, err := ParseLibKind(opts.LibType)
		if err != nil {
			return nil, fieldErr("--lib-type", err)
		}
		wanted = &k
	case file.LibType != "":
		k, err := ParseLibKind(file.LibType)
		if err != nil {
			return nil, fieldErr("lib-type", err)
		}
		wanted = &k
	}

	kind, err := ResolveLibKind(pkg.HasStaticLib(), pkg.HasDynamicLib(), wanted)
	if err != nil {
		return nil, err
	}

	includeDir := file.includeDir()
	if includeDir == "" {
		return nil, fieldErr("include-dir", fmt.Errorf("%w: not set", ErrIncludeDirMissing))
	}
	if info, err := os.Stat(includeDir); err != nil || !info.IsDir() {
		return nil, fieldErr("include-dir", fmt.Errorf("%w: '%s'", ErrIncludeDirMissing, includeDir))
	}

	platforms, err := chooseTargets(file)
	if err != nil {
		return nil, err
	}

	for _, pt := range platforms {
		env := pt.Platform.MinOSEnv()
		if v := os.Getenv(env); v != "" {
			if _, err := semver.NewVersion(v); err != nil {
				return nil, fieldErr(env, fmt.Errorf("invalid deployment target %q: %w", v, err))
			}
		}
	}

	profile, err := resolveProfile(opts)
	if err != nil {
		return nil, err
	}

	targetDir := opts.TargetDir
	switch {
	case targetDir != "":
		if targetDir, err = filepath.Abs(targetDir); err != nil {
			return nil, err
		}
	case pkg.TargetDirectory != "":
		targetDir = pkg.TargetDirectory
	default:
		targetDir = filepath.Join(pkg.Dir(), "target")
	}

	buildDir := filepath.Join(targetDir, "xcframework")
	outputDir := file.OutputDir
	if outputDir == "" {
		outputDir = targetDir
	}
	if rel, err := filepath.Rel(buildDir, outputDir); err == nil && filepath.IsLocal(rel) {
		return nil, fieldErr("output-dir", fmt.Errorf("'%s' is inside the build directory '%s', which is removed after every build", outputDir, buildDir))
	}

	zip := true
	if file.Zip != nil {
		zip = *file.Zip
	}
	if opts.NoZip {
		zip = false
	}

	unstable := append([]string(nil), opts.UnstableFlags...)
	if file.BuildStd != nil && *file.BuildStd && kind == StaticLib {
		unstable = withBuildStd(unstable)
	}

	libName := pkg.LibName
	if libName == "" {
		libName = pkg.Name
	}

	conf := &Configuration{
		Package:    pkg,
		LibName:    libName,
		LibKind:    kind,
		IncludeDir: includeDir,
		Platforms:  platforms,
		TargetDir:  targetDir,
		BuildDir:   buildDir,
		OutputDir:  outputDir,
		Zip:        zip,
		Profile:    profile,
		Cargo: CargoArgs{
			Features:          opts.Features,
			AllFeatures:       opts.AllFeatures,
			NoDefaultFeatures: opts.NoDefaultFeatures,
			UnstableFlags:     unstable,
			Quiet:             opts.Quiet,
			Verbose:           opts.Verbose,
		},
	}

	explicit := file.ModuleName
	conf.moduleName = sync.OnceValues(func() (string, error) {
		if explicit != "" {
			return explicit, nil
		}
		name, err := modulemap.ModuleName(includeDir)
		if err != nil {
			return "", fieldErr("include-dir", err)
		}
		return name, nil
	})

	return conf, nil
}

func resolveProfile(opts Options) (string, error) {
	switch {
	case opts.Profile != "" && opts.Release && opts.Profile != "release":
		return "", fieldErr("--profile", fmt.Errorf("conflicting --release and --profile %s", opts.Profile))
	case opts.Profile != "":
		return opts.Profile, nil
	case opts.Release:
		return "release", nil
	default:
		return "dev", nil
	}
}

// withBuildStd requests a std rebuild unless a build-std flag is already present.
func withBuildStd(flags []string) []string {
	for _, f := range flags {
		if strings.Contains(f, "build-std") {
			return flags
		}
	}
	return append(flags, "build-std=std")
}

func chooseTargets(file *File) ([]PlatformTargets, error) {
	simulators := file.Simulators != nil && *file.Simulators

	var out []PlatformTargets
	for _, s := range file.sections() {
		if s.enabled == nil || !*s.enabled {
			continue
		}

		targets, err := listTargets(s.name+"-targets", s.device, s.targets)
		if err != nil {
			return nil, err
		}
		out = append(out, PlatformTargets{Platform: s.device, Targets: targets})

		sim, ok := s.device.Simulator()
		if !simulators || !ok {
			continue
		}
		simTargets, err := listTargets(s.name+"-simulator-targets", sim, s.simTargets)
		if err != nil {
			return nil, err
		}
		out = append(out, PlatformTargets{Platform: sim, Targets: simTargets})
	}

	if len(out) == 0 {
		return nil, fieldErr("", fmt.Errorf("%w: at least one of 'macOS', 'iOS', 'macCatalyst', 'tvOS' or 'watchOS' must be set to true", ErrNoPlatform))
	}
	return out, nil
}

func listTargets(field string, want platform.Platform, triples []string) ([]platform.Target, error) {
	if triples == nil {
		triples = platform.DefaultTriples(want)
	}
	if len(triples) == 0 {
		return nil, fieldErr(field, fmt.Errorf("%w: no targets listed", ErrTargetMismatch))
	}

	targets := make([]platform.Target, 0, len(triples))
	seen := make(map[string]bool, len(triples))
	for _, s := range triples {
		if seen[s] {
			continue
		}
		seen[s] = true

		if err := validateTriple(s, want); err != nil {
			return nil, fieldErr(field, err)
		}
		targets = append(targets, platform.Target{Triple: s, Platform: want})
	}
	return targets, nil
}

func validateTriple(s string, want platform.Platform) error {
	t, err := platform.ParseTriple(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTargetMismatch, err)
	}
	if t.Vendor != "apple" {
		return fmt.Errorf("%w: expected apple not %s in %s", ErrTargetMismatch, t.Vendor, s)
	}

	got, err := t.Platform()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTargetMismatch, err)
	}
	if got == want {
		return nil
	}

	switch {
	case got.OS() != want.OS():
		return fmt.Errorf("%w: expected %s not %s in %s", ErrTargetMismatch, want.OS(), t.OS, s)
	case want.IsSimulator():
		return fmt.Errorf("%w: expected a simulator architecture not %s", ErrTargetMismatch, s)
	case got.IsSimulator():
		return fmt.Errorf("%w: %s is a simulator architecture, list it under the simulator targets", ErrTargetMismatch, s)
	default:
		return fmt.Errorf("%w: %s is a %s target, not %s", ErrTargetMismatch, s, got.DisplayName(), want.DisplayName())
	}
}
