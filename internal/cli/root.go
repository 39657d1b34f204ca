package cli

import (
	"context"

	"github.com/arnavsurve/cargo-xcframework/internal/process"
	"github.com/spf13/cobra"
)

var (
	quiet        bool
	verbose      int
	manifestPath string
)

func newRootCmd(version string) *cobra.Command {
	build := &buildOptions{}

	rootCmd := &cobra.Command{
		Use:     "cargo-xcframework",
		Version: version,
		Short:   "Build a Rust crate into an Apple XCFramework",
		Long: `cargo-xcframework compiles a Rust library for Apple targets, merges the
architectures of each platform with lipo, wraps them as frameworks and
assembles an XCFramework with xcodebuild.

Configure it in Cargo.toml:

  [package.metadata.xcframework]
  include-dir = "include"
  macOS = true
  iOS = true
  simulators = true

Common workflows:
  cargo xcframework                 Build (and zip) the XCFramework
  cargo xcframework --release       Build with the release profile
  cargo xcframework build --watch   Rebuild on source changes
  cargo xcframework targets         Show triples and what rustup has installed`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), build)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only show subprocess output when a step fails")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "Show underlying commands and pass -v to cargo (repeat for more cargo detail)")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest-path", "", "Path to Cargo.toml")

	build.register(rootCmd)

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(targetsCmd())

	return rootCmd
}

// Execute runs the command line. args excludes the program name.
func Execute(ctx context.Context, version string, args []string) error {
	rootCmd := newRootCmd(version)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func newRunner() *process.Runner {
	mode := process.ModeStream
	if quiet {
		mode = process.ModeCapture
	}
	return process.NewRunner(process.WithMode(mode), process.WithVerbose(verbose > 0))
}
