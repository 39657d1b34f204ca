package cargo

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arnavsurve/cargo-xcframework/internal/config"
	"github.com/arnavsurve/cargo-xcframework/internal/platform"
	"github.com/arnavsurve/cargo-xcframework/internal/process"
)

type EventType int

const (
	EventCompiling EventType = iota
	EventWarning
	EventError
	EventFinished
)

type Event struct {
	Type    EventType
	Message string
	Crate   string
	File    string
	Line    int
	Column  int
}

type Result struct {
	Libraries PlatformLibraryMap
	Duration  time.Duration
	Warnings  []Event
	Errors    []Event
}

// PlatformLibraryMap holds the built library paths of each platform, in target order.
type PlatformLibraryMap map[platform.Platform][]string

// Platforms returns the platforms present, in platform.All order.
func (m PlatformLibraryMap) Platforms() []platform.Platform {
	var out []platform.Platform
	for _, p := range platform.All() {
		if _, ok := m[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

type Streamer interface {
	Stream(ctx context.Context, name string, args []string) (<-chan process.OutputLine, <-chan error)
}

type Builder struct {
	program string
	exec    Streamer
	out     io.Writer
	capture bool
}

type Option func(*Builder)

// WithOutput sets where cargo's output is forwarded (default os.Stderr).
func WithOutput(w io.Writer) Option {
	return func(b *Builder) { b.out = w }
}

// WithCapture holds cargo's output back unless the build fails.
func WithCapture(c bool) Option {
	return func(b *Builder) { b.capture = c }
}

func NewBuilder(program string, exec Streamer, opts ...Option) *Builder {
	b := &Builder{program: program, exec: exec, out: os.Stderr}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build compiles every chosen target in one cargo invocation and streams
// events to the channel (can be nil).
func (b *Builder) Build(ctx context.Context, conf *config.Configuration, events chan<- Event) (*Result, error) {
	startTime := time.Now()
	result := &Result{}

	args := Args(conf)

	outChan, errChan := b.exec.Stream(ctx, b.program, args)
	parser := &outputParser{events: events, result: result}

	var captured strings.Builder
	handle := func(line process.OutputLine) {
		parser.parseLine(line.Content)
		if b.capture {
			captured.WriteString(line.Content)
			captured.WriteByte('\n')
		} else {
			fmt.Fprintln(b.out, line.Content)
		}
	}

	for outChan != nil || errChan != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case line, ok := <-outChan:
			if !ok {
				outChan = nil
				continue
			}
			handle(line)

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if err != nil {
				if outChan != nil {
					for line := range outChan {
						handle(line)
					}
				}
				parser.flush()
				result.Duration = time.Since(startTime)
				return result, &process.CommandError{Name: b.program, Args: args, Err: err, Output: captured.String()}
			}
		}
	}
	parser.flush()

	result.Libraries = LibraryMap(conf)
	result.Duration = time.Since(startTime)
	return result, nil
}

// Args assembles the `cargo build` command line for conf.
func Args(conf *config.Configuration) []string {
	args := []string{"build"}

	if conf.Package != nil {
		if conf.Package.ManifestPath != "" {
			args = append(args, "--manifest-path", conf.Package.ManifestPath)
		}
		args = append(args, "-p", conf.Package.Name)
	}

	for _, t := range conf.Targets() {
		args = append(args, "--target", t.Triple)
	}

	args = append(args, "--profile", conf.Profile)

	if conf.TargetDir != "" {
		args = append(args, "--target-dir", conf.TargetDir)
	}

	c := conf.Cargo
	if len(c.Features) > 0 {
		args = append(args, "--features", strings.Join(c.Features, ","))
	}
	if c.AllFeatures {
		args = append(args, "--all-features")
	}
	if c.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	for _, flag := range c.UnstableFlags {
		args = append(args, "-Z", flag)
	}
	if c.Quiet {
		args = append(args, "-q")
	}
	for range c.Verbose {
		args = append(args, "-v")
	}

	return args
}

// ProfileDir is the directory cargo writes a profile's output to.
func ProfileDir(profile string) string {
	switch profile {
	case "", "dev", "test":
		return "debug"
	case "bench":
		return "release"
	default:
		return profile
	}
}

// LibPath is where cargo leaves the library for one triple.
func LibPath(conf *config.Configuration, triple string) string {
	return filepath.Join(conf.TargetDir, triple, ProfileDir(conf.Profile), conf.LibFileName())
}

// LibraryMap groups the expected library paths by platform.
func LibraryMap(conf *config.Configuration) PlatformLibraryMap {
	libs := make(PlatformLibraryMap, len(conf.Platforms))
	for _, pt := range conf.Platforms {
		for _, t := range pt.Targets {
			libs[pt.Platform] = append(libs[pt.Platform], LibPath(conf, t.Triple))
		}
	}
	return libs
}

type outputParser struct {
	events chan<- Event
	result *Result
	last   *Event
}

var (
	compilePattern    = regexp.MustCompile(`^Compiling\s+(\S+)\s+v(\S+)`)
	diagnosticPattern = regexp.MustCompile(`^(warning|error)(?:\[\w+\])?:\s+(.+)$`)
	locationPattern   = regexp.MustCompile(`^-->\s+(.+):(\d+):(\d+)$`)
	finishedPattern   = regexp.MustCompile(`^Finished\s+(.+)$`)
	summaryPattern    = regexp.MustCompile(`generated \d+ warnings?|could not compile|aborting due to`)
)

func (p *outputParser) parseLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if matches := compilePattern.FindStringSubmatch(line); matches != nil {
		p.flush()
		p.emit(Event{Type: EventCompiling, Crate: matches[1], Message: matches[1] + " v" + matches[2]})
		return
	}

	if matches := locationPattern.FindStringSubmatch(line); matches != nil {
		if p.last != nil && p.last.File == "" {
			p.last.File = matches[1]
			p.last.Line, _ = strconv.Atoi(matches[2])
			p.last.Column, _ = strconv.Atoi(matches[3])
		}
		return
	}

	if matches := diagnosticPattern.FindStringSubmatch(line); matches != nil {
		p.flush()
		if summaryPattern.MatchString(matches[2]) {
			return
		}
		evType := EventWarning
		if matches[1] == "error" {
			evType = EventError
		}
		p.last = &Event{Type: evType, Message: matches[2]}
		return
	}

	if matches := finishedPattern.FindStringSubmatch(line); matches != nil {
		p.flush()
		p.emit(Event{Type: EventFinished, Message: matches[1]})
	}
}

// flush records the pending diagnostic once its location has had a chance to arrive.
func (p *outputParser) flush() {
	if p.last == nil {
		return
	}
	ev := *p.last
	p.last = nil

	if ev.Type == EventWarning {
		p.result.Warnings = append(p.result.Warnings, ev)
	} else {
		p.result.Errors = append(p.result.Errors, ev)
	}
	p.emit(ev)
}

func (p *outputParser) emit(ev Event) {
	if p.events != nil {
		p.events <- ev
	}
}
