package platform

import "fmt"

// Platform is an Apple platform/environment pair a framework slice is built for.
type Platform int

const (
	MacOS Platform = iota
	IOS
	IOSSimulator
	MacCatalyst
	TvOS
	TvOSSimulator
	WatchOS
	WatchOSSimulator
)

// All returns every platform in declaration order. Stages iterate in this order.
func All() []Platform {
	return []Platform{
		MacOS,
		IOS,
		IOSSimulator,
		MacCatalyst,
		TvOS,
		TvOSSimulator,
		WatchOS,
		WatchOSSimulator,
	}
}

// String returns the linker platform name, which doubles as the directory name.
func (p Platform) String() string {
	return p.LinkerName()
}

func (p Platform) DisplayName() string {
	switch p {
	case MacOS:
		return "macOS"
	case IOS:
		return "iOS"
	case IOSSimulator:
		return "iOS Simulator"
	case MacCatalyst:
		return "Mac Catalyst"
	case TvOS:
		return "tvOS"
	case TvOSSimulator:
		return "tvOS Simulator"
	case WatchOS:
		return "watchOS"
	case WatchOSSimulator:
		return "watchOS Simulator"
	default:
		panic(fmt.Sprintf("platform: unknown platform %d", int(p)))
	}
}

// SDKName is the Xcode SDK identifier, as used by DTPlatformName.
func (p Platform) SDKName() string {
	switch p {
	case MacOS:
		return "macosx"
	case IOS:
		return "iphoneos"
	case IOSSimulator:
		return "iphonesimulator"
	case MacCatalyst:
		return "maccatalyst"
	case TvOS:
		return "appletvos"
	case TvOSSimulator:
		return "appletvsimulator"
	case WatchOS:
		return "watchos"
	case WatchOSSimulator:
		return "watchsimulator"
	default:
		panic(fmt.Sprintf("platform: unknown platform %d", int(p)))
	}
}

// QuerySDK is the SDK passed to `xcrun --sdk` when asking for its version.
// Catalyst slices are built against the macOS SDK.
func (p Platform) QuerySDK() string {
	if p == MacCatalyst {
		return MacOS.SDKName()
	}
	return p.SDKName()
}

func (p Platform) LinkerName() string {
	switch p {
	case MacOS:
		return "macos"
	case IOS:
		return "ios"
	case IOSSimulator:
		return "ios-simulator"
	case MacCatalyst:
		return "mac-catalyst"
	case TvOS:
		return "tvos"
	case TvOSSimulator:
		return "tvos-simulator"
	case WatchOS:
		return "watchos"
	case WatchOSSimulator:
		return "watchos-simulator"
	default:
		panic(fmt.Sprintf("platform: unknown platform %d", int(p)))
	}
}

// MinOSEnv is the environment variable holding the deployment target.
func (p Platform) MinOSEnv() string {
	switch p {
	case MacOS:
		return "MACOSX_DEPLOYMENT_TARGET"
	case IOS, IOSSimulator, MacCatalyst:
		return "IPHONEOS_DEPLOYMENT_TARGET"
	case TvOS, TvOSSimulator:
		return "TVOS_DEPLOYMENT_TARGET"
	case WatchOS, WatchOSSimulator:
		return "WATCHOS_DEPLOYMENT_TARGET"
	default:
		panic(fmt.Sprintf("platform: unknown platform %d", int(p)))
	}
}

// DefaultMinOS is used when MinOSEnv is unset.
func (p Platform) DefaultMinOS() string {
	switch p {
	case MacOS:
		return "10.12"
	case IOS, IOSSimulator, MacCatalyst:
		return "10.0"
	case TvOS, TvOSSimulator:
		return "10.0"
	case WatchOS, WatchOSSimulator:
		return "5.0"
	default:
		panic(fmt.Sprintf("platform: unknown platform %d", int(p)))
	}
}

// OS is the operating system component expected in this platform's triples.
func (p Platform) OS() string {
	switch p {
	case MacOS:
		return "darwin"
	case IOS, IOSSimulator, MacCatalyst:
		return "ios"
	case TvOS, TvOSSimulator:
		return "tvos"
	case WatchOS, WatchOSSimulator:
		return "watchos"
	default:
		panic(fmt.Sprintf("platform: unknown platform %d", int(p)))
	}
}

func (p Platform) IsSimulator() bool {
	switch p {
	case IOSSimulator, TvOSSimulator, WatchOSSimulator:
		return true
	default:
		return false
	}
}

// Simulator returns the simulator counterpart of a device platform.
func (p Platform) Simulator() (Platform, bool) {
	switch p {
	case IOS:
		return IOSSimulator, true
	case TvOS:
		return TvOSSimulator, true
	case WatchOS:
		return WatchOSSimulator, true
	default:
		return p, false
	}
}

// Target is a triple tagged with the platform slice it is built into.
type Target struct {
	Triple   string   `json:"triple"`
	Platform Platform `json:"platform"`
}

func (t Target) String() string {
	return t.Triple
}

// Triples returns the triple strings of targets, preserving order.
func Triples(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.Triple
	}
	return out
}

func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Parse maps a linker name back to its platform.
func Parse(s string) (Platform, error) {
	for _, p := range All() {
		if p.LinkerName() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown platform %q", s)
}
