package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnavsurve/cargo-xcframework/internal/cli"
	"github.com/arnavsurve/cargo-xcframework/internal/process"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	// Handle signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()

		// Give cargo and xcodebuild time to exit
		time.Sleep(500 * time.Millisecond)

		// Force exit on second signal
		<-sigChan
		os.Exit(1)
	}()

	if err := cli.Execute(ctx, version, cargoArgs(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode passes on the status of a failed cargo or Xcode tool.
func exitCode(err error) int {
	var cmdErr *process.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode() > 0 {
		return cmdErr.ExitCode()
	}
	return 1
}

// cargoArgs drops the subcommand name cargo inserts when run as `cargo xcframework`.
func cargoArgs(args []string) []string {
	if len(args) > 0 && args[0] == "xcframework" {
		return args[1:]
	}
	return args
}
