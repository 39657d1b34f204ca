package xcframework

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// CreateXCFramework runs xcodebuild over the wrapped frameworks, replacing any
// previous bundle at out.
func CreateXCFramework(ctx context.Context, exec Executor, frameworks []string, out string) error {
	if err := os.RemoveAll(out); err != nil {
		return err
	}

	args := []string{"xcodebuild", "-create-xcframework"}
	for _, fw := range frameworks {
		args = append(args, "-framework", fw)
	}
	args = append(args, "-output", out)

	return exec.Run(ctx, "xcrun", args)
}

// moveDir renames src to dst, copying when they are on different devices.
func moveDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target)
		}
	})
}
