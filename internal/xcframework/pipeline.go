package xcframework

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/arnavsurve/cargo-xcframework/internal/cargo"
	"github.com/arnavsurve/cargo-xcframework/internal/config"
	"github.com/arnavsurve/cargo-xcframework/internal/platform"
	"github.com/arnavsurve/cargo-xcframework/internal/toolchain"
)

// Compiler builds the chosen targets and reports where the libraries landed.
type Compiler interface {
	Build(ctx context.Context, conf *config.Configuration, events chan<- cargo.Event) (*cargo.Result, error)
}

// Progress receives a line per pipeline step.
type Progress interface {
	Step(format string, args ...any)
}

type nopProgress struct{}

func (nopProgress) Step(string, ...any) {}

// Produced describes the artifact a successful run leaves behind.
type Produced struct {
	ModuleName string `json:"module_name"`
	Path       string `json:"path"`
	Zipped     bool   `json:"zipped"`

	// Build is what cargo reported. It is set even when a later step fails.
	Build *cargo.Result `json:"-"`
}

type Pipeline struct {
	exec     Executor
	compiler Compiler
	sdks     *toolchain.SDKVersions
	progress Progress
	events   chan<- cargo.Event
}

type Option func(*Pipeline)

func WithProgress(p Progress) Option {
	return func(pl *Pipeline) { pl.progress = p }
}

// WithEvents forwards cargo build events to ch. The pipeline never closes it.
func WithEvents(ch chan<- cargo.Event) Option {
	return func(pl *Pipeline) { pl.events = ch }
}

func NewPipeline(exec Executor, compiler Compiler, opts ...Option) *Pipeline {
	p := &Pipeline{
		exec:     exec,
		compiler: compiler,
		sdks:     toolchain.NewSDKVersions(exec),
		progress: nopProgress{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run builds, merges, wraps and assembles the XCFramework for conf. On failure
// the build directory is left in place and cleared by the next run. Once cargo
// has run, the returned Produced is non-nil and carries its result, even
// alongside an error.
func (p *Pipeline) Run(ctx context.Context, conf *config.Configuration) (*Produced, error) {
	bundle, err := conf.ModuleName()
	if err != nil {
		return nil, err
	}

	if err := os.RemoveAll(conf.BuildDir); err != nil {
		return nil, stageErr(StagePrepare, "", err)
	}

	targets := conf.Targets()
	p.progress.Step("Building %d target(s) with profile %s", len(targets), conf.Profile)
	result, err := p.compiler.Build(ctx, conf, p.events)
	produced := &Produced{ModuleName: bundle, Zipped: conf.Zip, Build: result}
	if err != nil {
		return produced, stageErr(StageBuild, "", err)
	}

	libs := result.Libraries
	universal := make(map[platform.Platform]string, len(libs))
	for _, plat := range libs.Platforms() {
		out := filepath.Join(conf.LibsDir(), plat.String(), conf.LibFileName())
		p.progress.Step("lipo %s (%d arch)", plat, len(libs[plat]))
		if err := Lipo(ctx, p.exec, libs[plat], out); err != nil {
			return produced, stageErr(StageLipo, plat.String(), err)
		}
		universal[plat] = out
	}

	frameworks, err := p.wrapAll(ctx, conf, bundle, libs.Platforms(), universal)
	if err != nil {
		return produced, err
	}

	xcfw := filepath.Join(conf.BuildDir, bundle+".xcframework")
	p.progress.Step("Creating %s.xcframework", bundle)
	if err := CreateXCFramework(ctx, p.exec, frameworks, xcfw); err != nil {
		return produced, stageErr(StageAssemble, "", err)
	}

	if conf.Zip {
		produced.Path = filepath.Join(conf.OutputDir, bundle+".xcframework.zip")
		p.progress.Step("Compressing %s", filepath.Base(produced.Path))
		if err := ZipDir(xcfw, produced.Path); err != nil {
			return produced, stageErr(StageCompress, "", err)
		}
	} else {
		produced.Path = filepath.Join(conf.OutputDir, bundle+".xcframework")
		if err := moveDir(xcfw, produced.Path); err != nil {
			return produced, stageErr(StageInstall, "", err)
		}
	}

	if err := os.RemoveAll(conf.BuildDir); err != nil {
		return produced, stageErr(StageInstall, "", fmt.Errorf("clean build directory: %w", err))
	}
	return produced, nil
}

// wrapAll wraps every platform concurrently and returns the framework paths in platform order.
func (p *Pipeline) wrapAll(ctx context.Context, conf *config.Configuration, bundle string, platforms []platform.Platform, universal map[platform.Platform]string) ([]string, error) {
	paths := make([]string, len(platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, plat := range platforms {
		fw := Framework{
			Platform:   plat,
			Bundle:     bundle,
			Library:    universal[plat],
			LibKind:    conf.LibKind,
			IncludeDir: conf.IncludeDir,
			Dir:        filepath.Join(conf.FrameworksDir(), plat.String(), bundle+".framework"),
		}
		paths[i] = fw.Dir

		g.Go(func() error {
			p.progress.Step("Wrapping %s", plat.DisplayName())
			if err := p.wrap(gctx, fw); err != nil {
				return stageErr(StageFramework, plat.String(), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
