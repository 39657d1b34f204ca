package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/arnavsurve/cargo-xcframework/internal/cargo"
	"github.com/arnavsurve/cargo-xcframework/internal/process"
	"github.com/arnavsurve/cargo-xcframework/internal/xcframework"
)

const cargoToml = `[package]
name = "my-math"
version = "0.1.0"

[lib]
crate-type = ["staticlib"]

[package.metadata.xcframework]
include-dir = "include"
macOS = true
iOS = true
simulators = true
iOS-simulator-targets = ["aarch64-apple-ios-sim"]
`

type fakeCrate struct {
	dir      string
	manifest string
	argsLog  string
}

// newFakeCrate lays out a crate and a cargo stand-in that answers
// `cargo metadata` and records the arguments of any other call before
// failing with status 101.
func newFakeCrate(t *testing.T) fakeCrate {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo is a shell script")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	dir := t.TempDir()
	manifest := filepath.Join(dir, "Cargo.toml")
	include := filepath.Join(dir, "include")
	if err := os.MkdirAll(include, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		manifest:                                   cargoToml,
		filepath.Join(include, "module.modulemap"): "module MyMath {\n  header \"mymath.h\"\n}\n",
		filepath.Join(include, "mymath.h"):         "int add(int a, int b);\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	metadata := fmt.Sprintf(`{"packages":[{"name":"my-math","version":"0.1.0","manifest_path":%q,`+
		`"targets":[{"name":"my_math","kind":["staticlib"],"crate_types":["staticlib"]}]}],"target_directory":%q}`,
		manifest, filepath.Join(dir, "target"))

	bin := t.TempDir()
	argsLog := filepath.Join(dir, "cargo-args")
	script := fmt.Sprintf(`#!/bin/sh
case "$1" in
metadata)
	printf '%%s\n' '%s'
	;;
*)
	printf '%%s\n' "$@" > '%s'
	echo "error: could not compile my-math" >&2
	exit 101
	;;
esac
`, metadata, argsLog)
	cargoPath := filepath.Join(bin, "cargo")
	if err := os.WriteFile(cargoPath, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CARGO", cargoPath)
	// rustup is deliberately absent so no target check or install prompt runs.
	t.Setenv("PATH", bin)

	return fakeCrate{dir: dir, manifest: manifest, argsLog: argsLog}
}

func (c fakeCrate) cargoArgs(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(c.argsLog)
	if err != nil {
		t.Fatalf("cargo build never ran: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd("test")
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// hasRun reports whether want appears contiguously in args.
func hasRun(args, want []string) bool {
	for i := 0; i+len(want) <= len(args); i++ {
		if slices.Equal(args[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

func TestBuildFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    [][]string
		notWant []string
		verbose int
	}{
		{
			name:    "root runs build",
			args:    nil,
			want:    [][]string{{"build"}, {"--profile", "dev"}, {"--target", "aarch64-apple-ios-sim"}},
			notWant: []string{"-q", "x86_64-apple-ios"},
		},
		{
			name: "build flags on root",
			args: []string{"--release", "-F", "ffi,simd", "--no-default-features", "-Z", "build-std=std"},
			want: [][]string{{"--profile", "release"}, {"--features", "ffi,simd"}, {"--no-default-features"}, {"-Z", "build-std=std"}},
		},
		{
			name: "build subcommand",
			args: []string{"build", "--profile", "bench", "--all-features"},
			want: [][]string{{"--profile", "bench"}, {"--all-features"}},
		},
		{
			name: "quiet passes through",
			args: []string{"-q"},
			want: [][]string{{"-q"}},
		},
		{
			name:    "single verbose",
			args:    []string{"build", "-v"},
			want:    [][]string{{"--target-dir"}, {"-v"}},
			verbose: 1,
		},
		{
			name:    "repeated verbose",
			args:    []string{"-vv"},
			want:    [][]string{{"-v", "-v"}},
			verbose: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crate := newFakeCrate(t)

			args := append([]string{"--manifest-path", crate.manifest}, tt.args...)
			_, err := execute(t, args...)

			var stageErr *xcframework.StageError
			if !errors.As(err, &stageErr) || stageErr.Stage != xcframework.StageBuild {
				t.Fatalf("error = %v, want a build stage failure", err)
			}
			var cmdErr *process.CommandError
			if !errors.As(err, &cmdErr) || cmdErr.ExitCode() != 101 {
				t.Errorf("error = %v, want cargo's exit status 101", err)
			}

			got := crate.cargoArgs(t)
			if !hasRun(got, []string{"--manifest-path", crate.manifest}) {
				t.Errorf("cargo args %v missing --manifest-path", got)
			}
			for _, w := range tt.want {
				if !hasRun(got, w) {
					t.Errorf("cargo args %v missing %v", got, w)
				}
			}
			for _, nw := range tt.notWant {
				if slices.Contains(got, nw) {
					t.Errorf("cargo args %v contain %s", got, nw)
				}
			}
			n := 0
			for _, a := range got {
				if a == "-v" {
					n++
				}
			}
			if n != tt.verbose {
				t.Errorf("cargo got -v %d times, want %d", n, tt.verbose)
			}
		})
	}
}

func TestBuildOptionsMergeGlobals(t *testing.T) {
	t.Cleanup(func() { quiet, verbose, manifestPath = false, 0, "" })
	quiet, verbose, manifestPath = true, 2, "/crate/Cargo.toml"

	o := &buildOptions{}
	o.Profile = "bench"
	o.NoZip = true

	opts := o.options()
	if !opts.Quiet || opts.Verbose != 2 || opts.ManifestPath != "/crate/Cargo.toml" {
		t.Errorf("globals not merged: %+v", opts)
	}
	if opts.Profile != "bench" || !opts.NoZip {
		t.Errorf("command flags lost: %+v", opts)
	}
}

func TestInfoJSON(t *testing.T) {
	crate := newFakeCrate(t)

	out, err := execute(t, "info", "--json", "--release", "--manifest-path", crate.manifest)
	if err != nil {
		t.Fatalf("info error: %v", err)
	}
	if !gjson.Valid(out) {
		t.Fatalf("invalid JSON: %s", out)
	}

	doc := gjson.Parse(out)
	for path, want := range map[string]string{
		"module_name":  "MyMath",
		"package.name": "my-math",
		"lib_type":     "staticlib",
		"profile":      "release",
		"build_dir":    filepath.Join(crate.dir, "target", "xcframework"),
	} {
		if got := doc.Get(path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
	if !doc.Get("zip").Bool() {
		t.Error("zip = false, want true")
	}
	if n := doc.Get("platforms.#").Int(); n != 3 {
		t.Errorf("platforms = %d, want 3", n)
	}
	if _, err := os.Stat(crate.argsLog); !os.IsNotExist(err) {
		t.Error("info ran cargo build")
	}
}

func TestTargetsPlatformFilter(t *testing.T) {
	crate := newFakeCrate(t)

	out, err := execute(t, "targets", "--platform", "ios-simulator", "--json", "--manifest-path", crate.manifest)
	if err != nil {
		t.Fatalf("targets error: %v", err)
	}

	rows := gjson.Parse(out).Array()
	var triples []string
	for _, row := range rows {
		if p := row.Get("platform").String(); p != "iOS Simulator" {
			t.Errorf("row for %s leaked through the filter", p)
		}
		if row.Get("installed").Bool() {
			t.Errorf("%s installed without rustup", row.Get("triple"))
		}
		triple := row.Get("triple").String()
		triples = append(triples, triple)
		if selected := row.Get("selected").Bool(); selected != (triple == "aarch64-apple-ios-sim") {
			t.Errorf("%s selected = %v", triple, selected)
		}
	}
	if !slices.Equal(triples, []string{"aarch64-apple-ios-sim", "x86_64-apple-ios"}) {
		t.Errorf("triples = %v", triples)
	}
}

func TestTargetsUnknownPlatform(t *testing.T) {
	if _, err := execute(t, "targets", "--platform", "android"); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestErrorSummary(t *testing.T) {
	var errs []cargo.Event
	for i := 1; i <= 7; i++ {
		errs = append(errs, cargo.Event{Type: cargo.EventError, Message: fmt.Sprintf("e%d", i), File: "src/lib.rs", Line: i, Column: 1})
	}
	errs = append(errs, cargo.Event{Type: cargo.EventError, Message: "linking failed"})

	lines, more := errorSummary(errs, 5)
	if len(lines) != 5 || more != 3 {
		t.Fatalf("summary = %v, %d more", lines, more)
	}
	if lines[0] != "lib.rs:1:1: e1" {
		t.Errorf("first line = %q", lines[0])
	}

	lines, more = errorSummary(errs[7:], 5)
	if more != 0 || !slices.Equal(lines, []string{"linking failed"}) {
		t.Errorf("summary = %v, %d more", lines, more)
	}
}
