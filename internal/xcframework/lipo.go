package xcframework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Lipo merges the per-architecture libraries of one platform into out.
// A single input is copied unchanged.
func Lipo(ctx context.Context, exec Executor, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no libraries to merge into %s", out)
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return fmt.Errorf("library not found: %s: %w", in, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	if len(inputs) == 1 {
		return copyFile(inputs[0], out)
	}

	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	args := append([]string{"-create"}, inputs...)
	args = append(args, "-output", out)
	return exec.Run(ctx, "lipo", args)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
