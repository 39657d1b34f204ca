package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/tidwall/gjson"
)

const (
	CrateTypeStatic  = "staticlib"
	CrateTypeDynamic = "cdylib"
)

// Package is the subset of `cargo metadata` output the build needs.
type Package struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ManifestPath    string   `json:"manifest_path"`
	LibName         string   `json:"lib_name"`
	CrateTypes      []string `json:"crate_types"`
	TargetDirectory string   `json:"target_directory"`
}

// Dir is the crate root, the directory holding Cargo.toml.
func (p *Package) Dir() string {
	return filepath.Dir(p.ManifestPath)
}

func (p *Package) HasStaticLib() bool {
	return slices.Contains(p.CrateTypes, CrateTypeStatic)
}

func (p *Package) HasDynamicLib() bool {
	return slices.Contains(p.CrateTypes, CrateTypeDynamic)
}

type runner interface {
	RunSilent(ctx context.Context, name string, args []string) ([]byte, error)
}

// Load runs `cargo metadata` for manifestPath and extracts the package.
// pkgName selects a workspace member; empty means the package owning manifestPath.
func Load(ctx context.Context, r runner, cargo, manifestPath, pkgName string) (*Package, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, err
	}

	output, err := r.RunSilent(ctx, cargo, []string{
		"metadata", "--format-version", "1", "--no-deps", "--manifest-path", abs,
	})
	if err != nil {
		return nil, fmt.Errorf("cargo metadata: %w", err)
	}

	return Parse(output, abs, pkgName)
}

// Parse extracts the package from `cargo metadata --format-version 1` JSON.
func Parse(data []byte, manifestPath, pkgName string) (*Package, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("cargo metadata: invalid JSON")
	}
	doc := gjson.ParseBytes(data)

	packages := doc.Get("packages").Array()
	if len(packages) == 0 {
		return nil, fmt.Errorf("cargo metadata: no packages in %s", manifestPath)
	}

	var pkg gjson.Result
	found := false
	for _, p := range packages {
		switch {
		case pkgName != "" && p.Get("name").String() == pkgName:
			pkg, found = p, true
		case pkgName == "" && filepath.Clean(p.Get("manifest_path").String()) == filepath.Clean(manifestPath):
			pkg, found = p, true
		}
		if found {
			break
		}
	}
	if !found {
		if pkgName != "" {
			return nil, fmt.Errorf("package %q not found in %s", pkgName, manifestPath)
		}
		if len(packages) != 1 {
			return nil, fmt.Errorf("could not find root package in %s (use --package)", manifestPath)
		}
		pkg = packages[0]
	}

	out := &Package{
		Name:            pkg.Get("name").String(),
		Version:         pkg.Get("version").String(),
		ManifestPath:    pkg.Get("manifest_path").String(),
		TargetDirectory: doc.Get("target_directory").String(),
	}

	pkg.Get("targets").ForEach(func(_, target gjson.Result) bool {
		kinds := stringArray(target.Get("kind"))
		crateTypes := stringArray(target.Get("crate_types"))
		if !isLibTarget(kinds) {
			return true
		}
		out.LibName = target.Get("name").String()
		for _, ct := range append(kinds, crateTypes...) {
			if !slices.Contains(out.CrateTypes, ct) {
				out.CrateTypes = append(out.CrateTypes, ct)
			}
		}
		return false
	})

	return out, nil
}

func isLibTarget(kinds []string) bool {
	for _, k := range kinds {
		switch k {
		case "lib", "rlib", "dylib", CrateTypeStatic, CrateTypeDynamic:
			return true
		}
	}
	return false
}

func stringArray(r gjson.Result) []string {
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}
