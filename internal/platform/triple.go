package platform

import (
	"fmt"
	"strings"
)

// Triple is a parsed target triple: arch-vendor-os[-env].
type Triple struct {
	Arch   string
	Vendor string
	OS     string
	Env    string
}

func ParseTriple(s string) (Triple, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 || len(parts) > 4 {
		return Triple{}, fmt.Errorf("invalid target triple %q", s)
	}
	for _, p := range parts {
		if p == "" {
			return Triple{}, fmt.Errorf("invalid target triple %q", s)
		}
	}

	t := Triple{Arch: parts[0], Vendor: parts[1], OS: parts[2]}
	if len(parts) == 4 {
		t.Env = parts[3]
	}
	return t, nil
}

func (t Triple) String() string {
	s := t.Arch + "-" + t.Vendor + "-" + t.OS
	if t.Env != "" {
		s += "-" + t.Env
	}
	return s
}

// x86_64 slices for these operating systems only ever run in a simulator.
var implicitSimulators = map[string]bool{
	"x86_64-apple-ios":     true,
	"x86_64-apple-tvos":    true,
	"x86_64-apple-watchos": true,
}

// IsAppleSimulator reports whether the triple targets a simulator.
func (t Triple) IsAppleSimulator() bool {
	return t.Env == "sim" || implicitSimulators[t.String()]
}

func (t Triple) IsCatalyst() bool {
	return t.OS == "ios" && t.Env == "macabi"
}

// Platform classifies the triple. It fails for non-Apple triples.
func (t Triple) Platform() (Platform, error) {
	if t.Vendor != "apple" {
		return 0, fmt.Errorf("expected vendor apple not %s in %s", t.Vendor, t)
	}

	switch t.OS {
	case "darwin", "macos":
		return MacOS, nil
	case "ios":
		switch {
		case t.IsCatalyst():
			return MacCatalyst, nil
		case t.IsAppleSimulator():
			return IOSSimulator, nil
		default:
			return IOS, nil
		}
	case "tvos":
		if t.IsAppleSimulator() {
			return TvOSSimulator, nil
		}
		return TvOS, nil
	case "watchos":
		if t.IsAppleSimulator() {
			return WatchOSSimulator, nil
		}
		return WatchOS, nil
	default:
		return 0, fmt.Errorf("unsupported operating system %s in %s", t.OS, t)
	}
}
