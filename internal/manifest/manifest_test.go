package manifest

import (
	"context"
	"fmt"
	"slices"
	"testing"
)

const metadataJSON = `{
  "packages": [
    {
      "name": "mymath",
      "version": "0.1.0",
      "manifest_path": "/work/mymath/Cargo.toml",
      "targets": [
        {"name": "mymath", "kind": ["staticlib", "cdylib"], "crate_types": ["staticlib", "cdylib"]},
        {"name": "bench", "kind": ["bench"], "crate_types": ["bin"]}
      ]
    },
    {
      "name": "helper",
      "version": "0.2.0",
      "manifest_path": "/work/helper/Cargo.toml",
      "targets": [
        {"name": "helper-cli", "kind": ["bin"], "crate_types": ["bin"]},
        {"name": "helper", "kind": ["lib"], "crate_types": ["lib"]}
      ]
    }
  ],
  "target_directory": "/work/target",
  "version": 1
}`

func TestParse_ByManifestPath(t *testing.T) {
	pkg, err := Parse([]byte(metadataJSON), "/work/mymath/Cargo.toml", "")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pkg.Name != "mymath" {
		t.Errorf("Name = %q, want mymath", pkg.Name)
	}
	if pkg.LibName != "mymath" {
		t.Errorf("LibName = %q, want mymath", pkg.LibName)
	}
	if !pkg.HasStaticLib() || !pkg.HasDynamicLib() {
		t.Errorf("CrateTypes = %v, want staticlib and cdylib", pkg.CrateTypes)
	}
	if pkg.TargetDirectory != "/work/target" {
		t.Errorf("TargetDirectory = %q", pkg.TargetDirectory)
	}
	if pkg.Dir() != "/work/mymath" {
		t.Errorf("Dir() = %q", pkg.Dir())
	}
}

func TestParse_ByName(t *testing.T) {
	pkg, err := Parse([]byte(metadataJSON), "/work/Cargo.toml", "helper")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pkg.LibName != "helper" {
		t.Errorf("LibName = %q, want helper", pkg.LibName)
	}
	if pkg.HasStaticLib() || pkg.HasDynamicLib() {
		t.Errorf("CrateTypes = %v, want neither", pkg.CrateTypes)
	}
	if !slices.Contains(pkg.CrateTypes, "lib") {
		t.Errorf("CrateTypes = %v, want lib", pkg.CrateTypes)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		manifest string
		pkg      string
	}{
		{"invalid json", "{not json", "/work/mymath/Cargo.toml", ""},
		{"no packages", `{"packages": []}`, "/work/Cargo.toml", ""},
		{"unknown package", metadataJSON, "/work/Cargo.toml", "nope"},
		{"workspace root", metadataJSON, "/work/Cargo.toml", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.manifest, tt.pkg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

type fakeRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRunner) RunSilent(_ context.Context, name string, args []string) ([]byte, error) {
	f.name, f.args = name, args
	return f.out, f.err
}

func TestLoad(t *testing.T) {
	r := &fakeRunner{out: []byte(metadataJSON)}

	pkg, err := Load(context.Background(), r, "cargo", "/work/mymath/Cargo.toml", "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if pkg.Name != "mymath" {
		t.Errorf("Name = %q", pkg.Name)
	}

	want := []string{"metadata", "--format-version", "1", "--no-deps", "--manifest-path", "/work/mymath/Cargo.toml"}
	if r.name != "cargo" || !slices.Equal(r.args, want) {
		t.Errorf("invocation = %s %v, want cargo %v", r.name, r.args, want)
	}

	r.err = fmt.Errorf("exit status 101")
	if _, err := Load(context.Background(), r, "cargo", "/work/mymath/Cargo.toml", ""); err == nil {
		t.Error("expected error when cargo metadata fails")
	}
}
