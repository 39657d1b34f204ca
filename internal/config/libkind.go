package config

import (
	"fmt"
	"strings"

	"github.com/arnavsurve/cargo-xcframework/internal/manifest"
)

// LibKind is the kind of library the crate is built as. Exactly one is active per run.
type LibKind int

const (
	StaticLib LibKind = iota
	DynamicLib
)

func ParseLibKind(s string) (LibKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "staticlib", "static":
		return StaticLib, nil
	case "cdylib", "dylib", "dynamiclib", "dynamic":
		return DynamicLib, nil
	default:
		return 0, fmt.Errorf("unknown library type %q (expected staticlib or cdylib)", s)
	}
}

// String returns the Cargo crate-type name.
func (k LibKind) String() string {
	if k == DynamicLib {
		return manifest.CrateTypeDynamic
	}
	return manifest.CrateTypeStatic
}

// Ext is the file extension of the built library.
func (k LibKind) Ext() string {
	if k == DynamicLib {
		return "dylib"
	}
	return "a"
}

func (k LibKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ResolveLibKind picks the library kind from the crate types the package
// declares and the kind requested on the command line or in the config.
func ResolveLibKind(hasStatic, hasDynamic bool, wanted *LibKind) (LibKind, error) {
	switch {
	case !hasStatic && !hasDynamic:
		return 0, fieldErr("crate-type", ErrLibKindMissing)
	case wanted == nil && hasStatic && hasDynamic:
		return 0, fieldErr("lib-type", fmt.Errorf("%w: please set '[package.metadata.xcframework] lib-type' in Cargo.toml or pass --lib-type", ErrLibKindAmbiguous))
	case wanted == nil && hasStatic:
		return StaticLib, nil
	case wanted == nil:
		return DynamicLib, nil
	case *wanted == StaticLib && !hasStatic:
		return 0, fieldErr("crate-type", fmt.Errorf("%w: please add 'staticlib' to '[lib] crate-type' in Cargo.toml", ErrCrateTypeNotDeclared))
	case *wanted == DynamicLib && !hasDynamic:
		return 0, fieldErr("crate-type", fmt.Errorf("%w: please add 'cdylib' to '[lib] crate-type' in Cargo.toml", ErrCrateTypeNotDeclared))
	default:
		return *wanted, nil
	}
}
