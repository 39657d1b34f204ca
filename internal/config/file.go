package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/arnavsurve/cargo-xcframework/internal/platform"
)

// File is the xcframework configuration section, as found in
// xcframework.toml/.yaml or Cargo.toml [package.metadata.xcframework].
type File struct {
	IncludeDir       string `toml:"include-dir" yaml:"include-dir"`
	HeadersDirectory string `toml:"headers-directory" yaml:"headers-directory"`
	LibType          string `toml:"lib-type" yaml:"lib-type"`
	ModuleName       string `toml:"module-name" yaml:"module-name"`
	OutputDir        string `toml:"output-dir" yaml:"output-dir"`
	Zip              *bool  `toml:"zip" yaml:"zip"`
	BuildStd         *bool  `toml:"build-std" yaml:"build-std"`
	Simulators       *bool  `toml:"simulators" yaml:"simulators"`

	MacOS        *bool    `toml:"macOS" yaml:"macOS"`
	MacOSTargets []string `toml:"macOS-targets" yaml:"macOS-targets"`

	IOS                 *bool    `toml:"iOS" yaml:"iOS"`
	IOSTargets          []string `toml:"iOS-targets" yaml:"iOS-targets"`
	IOSSimulatorTargets []string `toml:"iOS-simulator-targets" yaml:"iOS-simulator-targets"`

	MacCatalyst        *bool    `toml:"macCatalyst" yaml:"macCatalyst"`
	MacCatalystTargets []string `toml:"macCatalyst-targets" yaml:"macCatalyst-targets"`

	TvOS                 *bool    `toml:"tvOS" yaml:"tvOS"`
	TvOSTargets          []string `toml:"tvOS-targets" yaml:"tvOS-targets"`
	TvOSSimulatorTargets []string `toml:"tvOS-simulator-targets" yaml:"tvOS-simulator-targets"`

	WatchOS                 *bool    `toml:"watchOS" yaml:"watchOS"`
	WatchOSTargets          []string `toml:"watchOS-targets" yaml:"watchOS-targets"`
	WatchOSSimulatorTargets []string `toml:"watchOS-simulator-targets" yaml:"watchOS-simulator-targets"`
}

// Merge overlays every field set in src onto f.
func (f *File) Merge(src *File) {
	if src == nil {
		return
	}
	mergeString(&f.IncludeDir, src.IncludeDir)
	mergeString(&f.HeadersDirectory, src.HeadersDirectory)
	mergeString(&f.LibType, src.LibType)
	mergeString(&f.ModuleName, src.ModuleName)
	mergeString(&f.OutputDir, src.OutputDir)
	mergeBool(&f.Zip, src.Zip)
	mergeBool(&f.BuildStd, src.BuildStd)
	mergeBool(&f.Simulators, src.Simulators)

	mergeBool(&f.MacOS, src.MacOS)
	mergeList(&f.MacOSTargets, src.MacOSTargets)
	mergeBool(&f.IOS, src.IOS)
	mergeList(&f.IOSTargets, src.IOSTargets)
	mergeList(&f.IOSSimulatorTargets, src.IOSSimulatorTargets)
	mergeBool(&f.MacCatalyst, src.MacCatalyst)
	mergeList(&f.MacCatalystTargets, src.MacCatalystTargets)
	mergeBool(&f.TvOS, src.TvOS)
	mergeList(&f.TvOSTargets, src.TvOSTargets)
	mergeList(&f.TvOSSimulatorTargets, src.TvOSSimulatorTargets)
	mergeBool(&f.WatchOS, src.WatchOS)
	mergeList(&f.WatchOSTargets, src.WatchOSTargets)
	mergeList(&f.WatchOSSimulatorTargets, src.WatchOSSimulatorTargets)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeBool(dst **bool, src *bool) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func mergeList(dst *[]string, src []string) {
	if src != nil {
		*dst = append([]string(nil), src...)
	}
}

// includeDir honours the legacy headers-directory spelling.
func (f *File) includeDir() string {
	if f.IncludeDir != "" {
		return f.IncludeDir
	}
	return f.HeadersDirectory
}

// section groups one configurable platform with its simulator counterpart.
type section struct {
	name       string
	device     platform.Platform
	enabled    *bool
	targets    []string
	simTargets []string
}

func (f *File) sections() []section {
	return []section{
		{"macOS", platform.MacOS, f.MacOS, f.MacOSTargets, nil},
		{"iOS", platform.IOS, f.IOS, f.IOSTargets, f.IOSSimulatorTargets},
		{"macCatalyst", platform.MacCatalyst, f.MacCatalyst, f.MacCatalystTargets, nil},
		{"tvOS", platform.TvOS, f.TvOS, f.TvOSTargets, f.TvOSSimulatorTargets},
		{"watchOS", platform.WatchOS, f.WatchOS, f.WatchOSTargets, f.WatchOSSimulatorTargets},
	}
}

// resolvePaths makes relative directories relative to base.
func (f *File) resolvePaths(base string) {
	for _, p := range []*string{&f.IncludeDir, &f.HeadersDirectory, &f.OutputDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// LoadFile reads a standalone TOML or YAML config file, chosen by extension.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported config format %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse `%s`: %w", path, err)
	}

	f.resolvePaths(filepath.Dir(path))
	return &f, nil
}

type cargoManifest struct {
	Package struct {
		Metadata struct {
			Xcframework *File `toml:"xcframework"`
		} `toml:"metadata"`
	} `toml:"package"`
}

// LoadManifestSection reads [package.metadata.xcframework] from a Cargo.toml.
// It returns nil when the section is absent.
func LoadManifestSection(manifestPath string) (*File, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}

	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse `%s`: %w", manifestPath, err)
	}

	f := m.Package.Metadata.Xcframework
	if f != nil {
		f.resolvePaths(filepath.Dir(manifestPath))
	}
	return f, nil
}

var standaloneNames = []string{"xcframework.toml", "xcframework.yaml", "xcframework.yml"}

// LoadSources merges, in order, the crate's standalone config file, the
// Cargo.toml section and an explicitly given config file.
func LoadSources(manifestPath, explicit string) (*File, error) {
	merged := &File{}
	found := false

	crateDir := filepath.Dir(manifestPath)
	for _, name := range standaloneNames {
		path := filepath.Join(crateDir, name)
		f, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged.Merge(f)
		found = true
		break
	}

	section, err := LoadManifestSection(manifestPath)
	if err != nil {
		return nil, err
	}
	if section != nil {
		merged.Merge(section)
		found = true
	}

	if explicit != "" {
		f, err := LoadFile(explicit)
		if err != nil {
			return nil, err
		}
		merged.Merge(f)
		found = true
	}

	if !found {
		return nil, fmt.Errorf("missing [package.metadata.xcframework] section in %s (or an xcframework.toml next to it)", manifestPath)
	}
	return merged, nil
}
