package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arnavsurve/cargo-xcframework/internal/cargo"
	"github.com/arnavsurve/cargo-xcframework/internal/config"
	"github.com/arnavsurve/cargo-xcframework/internal/platform"
	"github.com/arnavsurve/cargo-xcframework/internal/process"
	"github.com/arnavsurve/cargo-xcframework/internal/toolchain"
	"github.com/arnavsurve/cargo-xcframework/internal/ui"
	"github.com/arnavsurve/cargo-xcframework/internal/watcher"
	"github.com/arnavsurve/cargo-xcframework/internal/xcframework"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	config.Options
	skipTargetCheck bool
	watch           bool
}

func (o *buildOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.Package, "package", "p", "", "Package to build (see `cargo help pkgid`)")
	f.StringVar(&o.ConfigPath, "config", "", "Extra xcframework.toml or .yaml, applied last")
	f.StringVar(&o.LibType, "lib-type", "", "Library type to package: staticlib or cdylib")
	f.StringVar(&o.TargetDir, "target-dir", "", "Directory for all generated artifacts")
	f.StringVar(&o.Profile, "profile", "", "Build artifacts with the specified profile")
	f.BoolVarP(&o.Release, "release", "r", false, "Build artifacts in release mode, with optimizations")
	f.StringSliceVarP(&o.Features, "features", "F", nil, "Space or comma separated list of features to activate")
	f.BoolVar(&o.AllFeatures, "all-features", false, "Activate all available features")
	f.BoolVar(&o.NoDefaultFeatures, "no-default-features", false, "Do not activate the `default` feature")
	f.StringArrayVarP(&o.UnstableFlags, "unstable", "Z", nil, "Unstable (nightly-only) flags passed to cargo")
	f.BoolVar(&o.NoZip, "no-zip", false, "Leave the XCFramework uncompressed")
	f.BoolVar(&o.skipTargetCheck, "skip-target-check", false, "Do not check that rustup has the targets installed")
	f.BoolVarP(&o.watch, "watch", "w", false, "Rebuild when sources change")
}

// options fills in the global flags.
func (o *buildOptions) options() config.Options {
	opts := o.Options
	opts.ManifestPath = manifestPath
	opts.Quiet = quiet
	opts.Verbose = verbose
	return opts
}

func buildCmd() *cobra.Command {
	o := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the XCFramework (default command)",
		Long:  `Compile the crate for every configured Apple target and package the result as an XCFramework.`,
		Example: `  cargo xcframework build
  cargo xcframework build --release
  cargo xcframework build --lib-type cdylib --no-zip
  cargo xcframework build -Z build-std --skip-target-check
  cargo xcframework build --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), o)
		},
	}

	o.register(cmd)
	return cmd
}

func runBuild(ctx context.Context, o *buildOptions) error {
	renderer := ui.NewQuietRenderer(quiet)
	runner := newRunner()

	conf, err := config.Load(ctx, runner, toolchain.CargoProgram(), o.options())
	if err != nil {
		return err
	}
	if _, err := conf.ModuleName(); err != nil {
		return err
	}

	if !o.skipTargetCheck {
		if err := checkTargets(ctx, runner, renderer, conf); err != nil {
			return err
		}
	}

	if o.watch {
		return watchBuild(ctx, o, conf, runner, renderer)
	}
	return buildOnce(ctx, conf, runner, renderer)
}

func checkTargets(ctx context.Context, runner *process.Runner, renderer *ui.Renderer, conf *config.Configuration) error {
	if !process.CommandExists("rustup") {
		renderer.Warning("rustup not found, not checking installed targets")
		return nil
	}
	checker := toolchain.NewChecker(runner, toolchain.NewTTYPrompter())
	return checker.Ensure(ctx, platform.Triples(conf.Targets()))
}

func buildOnce(ctx context.Context, conf *config.Configuration, runner *process.Runner, renderer *ui.Renderer) error {
	startTime := time.Now()

	builder := cargo.NewBuilder(toolchain.CargoProgram(), runner, cargo.WithCapture(quiet))

	// cargo's own progress is hidden when quiet, so show a spinner instead
	spin := quiet && isatty.IsTerminal(os.Stderr.Fd())

	events := make(chan cargo.Event, 100)
	done := make(chan struct{})
	var warningCount, errorCount int
	go func() {
		for ev := range events {
			switch ev.Type {
			case cargo.EventCompiling:
				if spin {
					renderer.StopSpinner(true)
					renderer.StartSpinner("Compiling %s...", ev.Crate)
				}

			case cargo.EventWarning:
				warningCount++

			case cargo.EventError:
				errorCount++
				if spin {
					renderer.StopSpinner(false)
					renderer.Error("%s", formatDiagnostic(ev))
					renderer.StartSpinner("Building...")
				}

			case cargo.EventFinished:
				renderer.StopSpinner(true)
			}
		}
		close(done)
	}()

	pipeline := xcframework.NewPipeline(runner, builder,
		xcframework.WithProgress(renderer),
		xcframework.WithEvents(events),
	)
	produced, err := pipeline.Run(ctx, conf)
	close(events)
	<-done
	renderer.StopSpinner(err == nil)

	if err != nil {
		if produced != nil && produced.Build != nil && len(produced.Build.Errors) > 0 {
			renderer.Error("cargo failed with %d error(s)", errorCount)
			lines, more := errorSummary(produced.Build.Errors, 5)
			for _, l := range lines {
				renderer.Info("  %s", l)
			}
			if more > 0 {
				renderer.Dim("... and %d more errors", more)
			}
		}
		return err
	}

	renderer.Success("Wrote %s in %.1fs", produced.Path, time.Since(startTime).Seconds())
	if produced.Build != nil {
		renderer.Dim("cargo build took %.1fs", produced.Build.Duration.Seconds())
	}
	if warningCount > 0 {
		renderer.Warning("%d warning(s)", warningCount)
	}
	return nil
}

func formatDiagnostic(ev cargo.Event) string {
	if ev.File == "" {
		return ev.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", filepath.Base(ev.File), ev.Line, ev.Column, ev.Message)
}

// errorSummary formats the first limit diagnostics and counts the rest.
func errorSummary(errs []cargo.Event, limit int) (lines []string, more int) {
	for i, e := range errs {
		if i >= limit {
			return lines, len(errs) - limit
		}
		lines = append(lines, formatDiagnostic(e))
	}
	return lines, 0
}

func watchBuild(ctx context.Context, o *buildOptions, conf *config.Configuration, runner *process.Runner, renderer *ui.Renderer) error {
	if err := buildOnce(ctx, conf, runner, renderer); err != nil {
		renderer.Error("%v", err)
	}

	skip := []string{conf.TargetDir}
	if conf.OutputDir != conf.Package.Dir() {
		skip = append(skip, conf.OutputDir)
	}
	w, err := watcher.New(500*time.Millisecond, skip...)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	roots := []string{conf.Package.Dir()}
	if rel, err := filepath.Rel(conf.Package.Dir(), conf.IncludeDir); err != nil || !filepath.IsLocal(rel) {
		roots = append(roots, conf.IncludeDir)
	}
	for _, root := range roots {
		if err := w.AddRecursive(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	renderer.Info("Watching %s for changes (ctrl-c to stop)", conf.Package.Dir())
	for change := range w.Watch(ctx) {
		renderer.Info("Changed: %s", filepath.Base(change.Path))

		// config may have changed along with the sources
		next, err := config.Load(ctx, runner, toolchain.CargoProgram(), o.options())
		if err != nil {
			renderer.Error("%v", err)
			continue
		}
		if err := buildOnce(ctx, next, runner, renderer); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			renderer.Error("%v", err)
		}
	}
	return nil
}
