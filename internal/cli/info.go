package cli

import (
	"encoding/json"
	"strings"

	"github.com/arnavsurve/cargo-xcframework/internal/config"
	"github.com/arnavsurve/cargo-xcframework/internal/toolchain"
	"github.com/arnavsurve/cargo-xcframework/internal/ui"
	"github.com/spf13/cobra"
)

type infoOutput struct {
	ModuleName string `json:"module_name"`
	*config.Configuration
}

func infoCmd() *cobra.Command {
	var (
		jsonOut bool
		o       buildOptions
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the resolved configuration",
		Long:  `Resolve the crate's xcframework configuration and print what a build would do, without building.`,
		Example: `  cargo xcframework info
  cargo xcframework info --release --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			conf, err := config.Load(ctx, newRunner(), toolchain.CargoProgram(), o.options())
			if err != nil {
				return err
			}

			moduleName, err := conf.ModuleName()
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infoOutput{ModuleName: moduleName, Configuration: conf})
			}

			renderer := ui.NewRenderer()
			renderer.Success("Package: %s %s", conf.Package.Name, conf.Package.Version)
			renderer.Info("Module: %s", moduleName)
			renderer.Info("Library: %s (%s)", conf.LibFileName(), conf.LibKind)
			renderer.Info("Profile: %s", conf.Profile)
			renderer.Info("Include dir: %s", conf.IncludeDir)
			renderer.Info("Output dir: %s", conf.OutputDir)
			if conf.Zip {
				renderer.Info("Output: %s.xcframework.zip", moduleName)
			} else {
				renderer.Info("Output: %s.xcframework", moduleName)
			}

			renderer.Info("")
			renderer.Info("Platforms:")
			for _, pt := range conf.Platforms {
				renderer.Info("  • %s: %s", pt.Platform.DisplayName(), strings.Join(tripleNames(pt), ", "))
			}

			if len(conf.Cargo.UnstableFlags) > 0 {
				renderer.Info("")
				renderer.Info("Unstable flags:")
				for _, f := range conf.Cargo.UnstableFlags {
					renderer.Info("  • -Z %s", f)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVarP(&o.Package, "package", "p", "", "Package to inspect")
	cmd.Flags().StringVar(&o.ConfigPath, "config", "", "Extra xcframework.toml or .yaml, applied last")
	cmd.Flags().StringVar(&o.LibType, "lib-type", "", "Library type to package: staticlib or cdylib")
	cmd.Flags().StringVar(&o.Profile, "profile", "", "Profile to resolve")
	cmd.Flags().BoolVarP(&o.Release, "release", "r", false, "Resolve the release profile")
	cmd.Flags().BoolVar(&o.NoZip, "no-zip", false, "Leave the XCFramework uncompressed")

	return cmd
}

func tripleNames(pt config.PlatformTargets) []string {
	out := make([]string, len(pt.Targets))
	for i, t := range pt.Targets {
		out[i] = t.Triple
	}
	return out
}
