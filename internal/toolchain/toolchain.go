package toolchain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/mattn/go-isatty"
)

// ErrInstallDeclined is returned when missing targets were not installed.
var ErrInstallDeclined = errors.New("missing targets were not installed")

// CargoProgram honours $CARGO, which cargo sets when running a subcommand.
func CargoProgram() string {
	if p := os.Getenv("CARGO"); p != "" {
		return p
	}
	return "cargo"
}

type Executor interface {
	Run(ctx context.Context, name string, args []string) error
	RunSilent(ctx context.Context, name string, args []string) ([]byte, error)
}

// Prompter asks a yes/no question.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// TTYPrompter reads the answer from a terminal. Non-interactive input is a no.
type TTYPrompter struct {
	In  *os.File
	Out io.Writer
}

func NewTTYPrompter() *TTYPrompter {
	return &TTYPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TTYPrompter) Confirm(question string) (bool, error) {
	fd := p.In.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		fmt.Fprintf(p.Out, "%s [y/N] (no terminal, assuming no)\n", question)
		return false, nil
	}
	return confirm(p.In, p.Out, question)
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Checker verifies that the rust standard library is installed for every target.
type Checker struct {
	exec   Executor
	prompt Prompter
}

func NewChecker(exec Executor, prompt Prompter) *Checker {
	return &Checker{exec: exec, prompt: prompt}
}

// Installed lists the targets rustup has installed for the active toolchain.
func (c *Checker) Installed(ctx context.Context) ([]string, error) {
	output, err := c.exec.RunSilent(ctx, "rustup", []string{"target", "list", "--installed"})
	if err != nil {
		return nil, fmt.Errorf("rustup target list: %w", err)
	}

	var targets []string
	for _, line := range strings.Split(string(output), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			targets = append(targets, t)
		}
	}
	return targets, nil
}

// Missing returns the triples not in installed, in the order given.
func Missing(triples, installed []string) []string {
	var out []string
	for _, t := range triples {
		if !slices.Contains(installed, t) && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Ensure offers to install any missing targets with rustup.
func (c *Checker) Ensure(ctx context.Context, triples []string) error {
	installed, err := c.Installed(ctx)
	if err != nil {
		return err
	}

	missing := Missing(triples, installed)
	if len(missing) == 0 {
		return nil
	}

	list := strings.Join(missing, ", ")
	ok, err := c.prompt.Confirm(fmt.Sprintf("The targets %s are missing, do you want to install them?", list))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInstallDeclined, list)
	}

	if err := c.exec.Run(ctx, "rustup", append([]string{"target", "add"}, missing...)); err != nil {
		return fmt.Errorf("rustup target add: %w", err)
	}
	return nil
}

// SDKVersions looks up and caches `xcrun --sdk <name> --show-sdk-version`.
type SDKVersions struct {
	exec Executor

	mu    sync.Mutex
	cache map[string]func() (string, error)
}

func NewSDKVersions(exec Executor) *SDKVersions {
	return &SDKVersions{exec: exec, cache: make(map[string]func() (string, error))}
}

// Get is safe for concurrent use. Each SDK is queried at most once.
func (s *SDKVersions) Get(ctx context.Context, sdk string) (string, error) {
	s.mu.Lock()
	lookup, ok := s.cache[sdk]
	if !ok {
		lookup = sync.OnceValues(func() (string, error) {
			return s.query(ctx, sdk)
		})
		s.cache[sdk] = lookup
	}
	s.mu.Unlock()

	return lookup()
}

func (s *SDKVersions) query(ctx context.Context, sdk string) (string, error) {
	output, err := s.exec.RunSilent(ctx, "xcrun", []string{"--sdk", sdk, "--show-sdk-version"})
	if err != nil {
		return "", fmt.Errorf("sdk version for %s: %w", sdk, err)
	}

	version := strings.TrimSpace(string(output))
	if _, err := semver.NewVersion(version); err != nil {
		return "", fmt.Errorf("sdk version for %s: unexpected %q: %w", sdk, version, err)
	}
	return version, nil
}
