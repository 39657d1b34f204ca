package xcframework

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/arnavsurve/cargo-xcframework/internal/config"
	"github.com/arnavsurve/cargo-xcframework/internal/modulemap"
	"github.com/arnavsurve/cargo-xcframework/internal/platform"
)

// Framework describes one platform's .framework bundle.
type Framework struct {
	Platform   platform.Platform
	Bundle     string
	Library    string
	LibKind    config.LibKind
	IncludeDir string
	Dir        string
}

// MinOSVersion is the deployment target from the environment, or the platform default.
func MinOSVersion(p platform.Platform) string {
	if v := os.Getenv(p.MinOSEnv()); v != "" {
		return v
	}
	return p.DefaultMinOS()
}

func (p *Pipeline) wrap(ctx context.Context, fw Framework) error {
	if err := os.RemoveAll(fw.Dir); err != nil {
		return err
	}
	if err := os.MkdirAll(fw.Dir, 0o755); err != nil {
		return err
	}

	sdkVersion, err := p.sdks.Get(ctx, fw.Platform.QuerySDK())
	if err != nil {
		return err
	}

	plistPath := filepath.Join(fw.Dir, "Info.plist")
	plist := InfoPlist{
		BundleName:   fw.Bundle,
		PlatformName: fw.Platform.SDKName(),
		SDKVersion:   sdkVersion,
		MinOSVersion: MinOSVersion(fw.Platform),
	}
	if err := plist.Write(plistPath); err != nil {
		return fmt.Errorf("write Info.plist: %w", err)
	}
	if err := p.exec.Run(ctx, "plutil", []string{"-convert", "binary1", "-o", plistPath, plistPath}); err != nil {
		return err
	}

	binary := filepath.Join(fw.Dir, fw.Bundle)
	if err := copyFile(fw.Library, binary); err != nil {
		return fmt.Errorf("copy library: %w", err)
	}
	if fw.LibKind == config.DynamicLib {
		installName := fmt.Sprintf("@rpath/%s.framework/%s", fw.Bundle, fw.Bundle)
		if err := p.exec.Run(ctx, "install_name_tool", []string{"-id", installName, binary}); err != nil {
			return err
		}
	}

	if err := CopyHeaders(fw.IncludeDir, filepath.Join(fw.Dir, "Headers")); err != nil {
		return err
	}

	mm, err := modulemap.Find(fw.IncludeDir)
	if err != nil {
		return err
	}
	modules := filepath.Join(fw.Dir, "Modules")
	if err := os.MkdirAll(modules, 0o755); err != nil {
		return err
	}
	return copyFile(mm, filepath.Join(modules, "module.modulemap"))
}

// CopyHeaders copies every header below src into dst, flattening the tree.
func CopyHeaders(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	seen := make(map[string]string)
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".h") {
			return nil
		}

		name := d.Name()
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("duplicate header %s: %s and %s", name, prev, path)
		}
		seen[name] = path

		return copyFile(path, filepath.Join(dst, name))
	})
}
