package cli

import (
	"encoding/json"
	"slices"

	"github.com/arnavsurve/cargo-xcframework/internal/config"
	"github.com/arnavsurve/cargo-xcframework/internal/platform"
	"github.com/arnavsurve/cargo-xcframework/internal/process"
	"github.com/arnavsurve/cargo-xcframework/internal/toolchain"
	"github.com/arnavsurve/cargo-xcframework/internal/ui"
	"github.com/spf13/cobra"
)

func targetsCmd() *cobra.Command {
	var (
		platformName string
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List Apple target triples",
		Long: `List the default triples of every Apple platform, marking the ones rustup has
installed and the ones the current crate's configuration selects.`,
		Example: `  cargo xcframework targets
  cargo xcframework targets --platform ios-simulator
  cargo xcframework targets --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			renderer := ui.NewRenderer()
			runner := newRunner()

			var only *platform.Platform
			if platformName != "" {
				p, err := platform.Parse(platformName)
				if err != nil {
					return err
				}
				only = &p
			}

			var installed []string
			if process.CommandExists("rustup") {
				renderer.StartSpinner("Querying rustup...")
				list, err := toolchain.NewChecker(runner, nil).Installed(ctx)
				renderer.StopSpinner(err == nil)
				if err != nil {
					renderer.Warning("%v", err)
				}
				installed = list
			} else {
				renderer.Warning("rustup not found, installed targets unknown")
			}

			// The crate config is optional here; outside a crate only defaults are shown.
			selected := map[platform.Platform][]string{}
			opts := config.Options{ManifestPath: manifestPath}
			if conf, err := config.Load(ctx, runner, toolchain.CargoProgram(), opts); err == nil {
				for _, pt := range conf.Platforms {
					selected[pt.Platform] = tripleNames(pt)
				}
			}

			var rows []ui.TargetInfo
			for _, p := range platform.All() {
				if only != nil && *only != p {
					continue
				}
				triples := slices.Clone(selected[p])
				for _, t := range platform.DefaultTriples(p) {
					if !slices.Contains(triples, t) {
						triples = append(triples, t)
					}
				}
				for _, t := range triples {
					rows = append(rows, ui.TargetInfo{
						Platform:  p.DisplayName(),
						Triple:    t,
						Selected:  slices.Contains(selected[p], t),
						Installed: slices.Contains(installed, t),
					})
				}
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			renderer.RenderTargets(rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&platformName, "platform", "", "Only show one platform (macos, ios, ios-simulator, mac-catalyst, tvos, ...)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}
