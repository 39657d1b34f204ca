package modulemap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{"plain", "module Foo {\n  header \"foo.h\"\n  export *\n}\n", "Foo", nil},
		{"framework", "framework module Bar {\n  umbrella header \"bar.h\"\n}\n", "Bar", nil},
		{"no space before brace", "module Baz{\n}\n", "Baz", nil},
		{"trailing whitespace", "module Qux {   \n}\n", "Qux", nil},
		{"crlf", "module Win {\r\n}\r\n", "Win", nil},
		{"comment first", "// generated\nmodule MyMath {\n}\n", "MyMath", nil},
		{"first wins", "module One {\n}\nmodule Two {\n}\n", "One", nil},
		{"missing", "// nothing here\n", "", ErrNoDeclaration},
		{"indented is ignored", "  module Foo {\n", "", ErrNoDeclaration},
		{"no brace", "module Foo\n{\n}\n", "", ErrMalformedDeclaration},
		{"empty name", "module {\n", "", ErrMalformedDeclaration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %q, want %q", got, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFind(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "module.modulemap"), "module Foo {\n}\n")
		writeFile(t, filepath.Join(dir, "foo.h"), "")

		got, err := Find(dir)
		if err != nil {
			t.Fatalf("Find error: %v", err)
		}
		if filepath.Base(got) != "module.modulemap" {
			t.Errorf("Find = %q", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "foo.h"), "")

		if _, err := Find(dir); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find error = %v, want ErrNotFound", err)
		}
	})

	t.Run("symlink", func(t *testing.T) {
		dir := t.TempDir()
		shared := filepath.Join(t.TempDir(), "shared.modulemap")
		writeFile(t, shared, "module Foo {\n}\n")
		if err := os.Symlink(shared, filepath.Join(dir, "module.modulemap")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}

		got, err := Find(dir)
		if err != nil {
			t.Fatalf("Find error: %v", err)
		}
		if filepath.Base(got) != "module.modulemap" {
			t.Errorf("Find = %q", got)
		}
		if name, err := ModuleName(dir); err != nil || name != "Foo" {
			t.Errorf("ModuleName = %q, %v; want Foo", name, err)
		}
	})

	t.Run("directory named like a modulemap", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "odd.modulemap"), 0o755); err != nil {
			t.Fatal(err)
		}

		if _, err := Find(dir); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ambiguous", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.modulemap"), "module A {\n}\n")
		writeFile(t, filepath.Join(dir, "b.modulemap"), "module B {\n}\n")

		if _, err := Find(dir); !errors.Is(err, ErrAmbiguous) {
			t.Errorf("Find error = %v, want ErrAmbiguous", err)
		}
	})
}

func TestModuleName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.modulemap")
	writeFile(t, path, "framework module MyMath {\n  umbrella header \"mymath.h\"\n}\n")

	for _, in := range []string{dir, path} {
		got, err := ModuleName(in)
		if err != nil {
			t.Fatalf("ModuleName(%s) error: %v", in, err)
		}
		if got != "MyMath" {
			t.Errorf("ModuleName(%s) = %q, want MyMath", in, got)
		}
	}
}

func TestModuleName_ParseErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "module.modulemap")
	writeFile(t, path, "// empty\n")

	_, err := ModuleName(dir)
	if !errors.Is(err, ErrNoDeclaration) {
		t.Fatalf("ModuleName error = %v, want ErrNoDeclaration", err)
	}
}
