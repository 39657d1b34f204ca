package platform

// DefaultTriples returns the built-in target list for a platform.
// Reference: https://doc.rust-lang.org/rustc/platform-support.html
func DefaultTriples(p Platform) []string {
	switch p {
	case MacOS:
		return []string{"x86_64-apple-darwin", "aarch64-apple-darwin"}
	case IOS:
		return []string{"aarch64-apple-ios"}
	case IOSSimulator:
		return []string{"aarch64-apple-ios-sim", "x86_64-apple-ios"}
	case MacCatalyst:
		return []string{"x86_64-apple-ios-macabi", "aarch64-apple-ios-macabi"}
	case TvOS:
		return []string{"aarch64-apple-tvos"}
	case TvOSSimulator:
		return []string{"aarch64-apple-tvos-sim", "x86_64-apple-tvos"}
	case WatchOS:
		return []string{"arm64_32-apple-watchos", "aarch64-apple-watchos"}
	case WatchOSSimulator:
		return []string{"aarch64-apple-watchos-sim", "x86_64-apple-watchos-sim"}
	default:
		return nil
	}
}
