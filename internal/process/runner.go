package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

type OutputLine struct {
	Stream  string // "stdout" or "stderr"
	Content string
}

// Mode selects how Run treats the output of a command.
type Mode int

const (
	// ModeStream forwards every line to the runner's output as it arrives.
	ModeStream Mode = iota
	// ModeCapture buffers output and only surfaces it when the command fails.
	ModeCapture
)

type Runner struct {
	mode    Mode
	verbose bool
	out     io.Writer
}

type Option func(*Runner)

func WithMode(m Mode) Option {
	return func(r *Runner) { r.mode = m }
}

func WithVerbose(v bool) Option {
	return func(r *Runner) { r.verbose = v }
}

// WithOutput redirects streamed output and command echoes (default os.Stderr).
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{mode: ModeStream, out: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) logCommand(name string, args []string) {
	if r.verbose {
		fmt.Fprintf(r.out, "  $ %s %s\n", name, strings.Join(args, " "))
	}
}

// CommandError is returned when a command exits unsuccessfully.
type CommandError struct {
	Name   string
	Args   []string
	Err    error
	Output string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Name, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code, or -1 if it never ran to completion.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Run executes a command, streaming or capturing its output depending on the mode.
func (r *Runner) Run(ctx context.Context, name string, args []string) error {
	if r.mode == ModeCapture {
		var buf bytes.Buffer
		r.logCommand(name, args)
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		if err := cmd.Run(); err != nil {
			return &CommandError{Name: name, Args: args, Err: err, Output: buf.String()}
		}
		return nil
	}

	lines, errs := r.Stream(ctx, name, args)
	for line := range lines {
		fmt.Fprintln(r.out, line.Content)
	}
	if err := <-errs; err != nil {
		return &CommandError{Name: name, Args: args, Err: err}
	}
	return nil
}

// Stream executes a command with streaming output via channels.
func (r *Runner) Stream(ctx context.Context, name string, args []string) (<-chan OutputLine, <-chan error) {
	r.logCommand(name, args)

	outChan := make(chan OutputLine, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)
		defer close(outChan)

		cmd := exec.CommandContext(ctx, name, args...)

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			errChan <- fmt.Errorf("stdout pipe: %w", err)
			return
		}

		stderr, err := cmd.StderrPipe()
		if err != nil {
			errChan <- fmt.Errorf("stderr pipe: %w", err)
			return
		}

		if err := cmd.Start(); err != nil {
			errChan <- fmt.Errorf("start: %w", err)
			return
		}

		var wg sync.WaitGroup
		wg.Add(2)

		scan := func(stream string, rd io.Reader) {
			defer wg.Done()
			scanner := bufio.NewScanner(rd)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for scanner.Scan() {
				select {
				case <-ctx.Done():
					return
				case outChan <- OutputLine{Stream: stream, Content: scanner.Text()}:
				}
			}
		}

		go scan("stdout", stdout)
		go scan("stderr", stderr)

		wg.Wait()

		if err := cmd.Wait(); err != nil {
			errChan <- err
		}
	}()

	return outChan, errChan
}

// RunSilent executes a command and returns stdout. Stderr is included in errors.
func (r *Runner) RunSilent(ctx context.Context, name string, args []string) ([]byte, error) {
	r.logCommand(name, args)

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Name: name, Args: args, Err: err, Output: stderr.String()}
	}

	return stdout.Bytes(), nil
}

func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
