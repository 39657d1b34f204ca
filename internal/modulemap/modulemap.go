// Package modulemap locates a clang module map and reads the module name
// declared in it. The name becomes the framework bundle name.
package modulemap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const Ext = ".modulemap"

var (
	ErrNotFound             = errors.New("no modulemap file found")
	ErrAmbiguous            = errors.New("more than one modulemap file found")
	ErrNoDeclaration        = errors.New("no 'module' declaration found")
	ErrMalformedDeclaration = errors.New("malformed 'module' declaration")
)

// Parse extracts the module name from the first `module <name> {` or
// `framework module <name> {` line.
func Parse(content string) (string, error) {
	var rest string
	found := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if s, ok := strings.CutPrefix(line, "framework module "); ok {
			rest, found = s, true
			break
		}
		if s, ok := strings.CutPrefix(line, "module "); ok {
			rest, found = s, true
			break
		}
	}
	if !found {
		return "", ErrNoDeclaration
	}

	rest = strings.TrimSpace(rest)
	name, ok := strings.CutSuffix(rest, "{")
	if !ok {
		return "", fmt.Errorf("%w: expected `module <name> {` not `%s`", ErrMalformedDeclaration, rest)
	}
	name = strings.TrimRight(name, " \t")
	if name == "" {
		return "", fmt.Errorf("%w: empty module name", ErrMalformedDeclaration)
	}
	return name, nil
}

// Find returns the single modulemap file at the top level of dir.
func Find(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}

	var found []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) != Ext {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// follows symlinks
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			found = append(found, path)
		}
	}
	sort.Strings(found)

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNotFound, dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w in %s: %s", ErrAmbiguous, dir, strings.Join(found, ", "))
	}
}

// ModuleName reads the module name from path, which may be a modulemap file
// or a directory containing exactly one.
func ModuleName(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		if path, err = Find(path); err != nil {
			return "", err
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	name, err := Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("parsing module name from %s: %w", path, err)
	}
	return name, nil
}
