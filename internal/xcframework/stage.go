package xcframework

import (
	"context"
	"fmt"
)

// Stage names one step of the pipeline. Errors carry the stage that failed.
type Stage string

const (
	StagePrepare   Stage = "prepare"
	StageBuild     Stage = "build"
	StageLipo      Stage = "lipo"
	StageFramework Stage = "framework"
	StageAssemble  Stage = "xcframework"
	StageCompress  Stage = "zip"
	StageInstall   Stage = "install"
)

type StageError struct {
	Stage    Stage
	Platform string
	Err      error
}

func (e *StageError) Error() string {
	if e.Platform != "" {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Platform, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, platform string, err error) error {
	return &StageError{Stage: stage, Platform: platform, Err: err}
}

// Executor runs the Xcode command line tools.
type Executor interface {
	Run(ctx context.Context, name string, args []string) error
	RunSilent(ctx context.Context, name string, args []string) ([]byte, error)
}
