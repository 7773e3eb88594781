package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/amalgam-dev/amalgam/pipeline"
)

var combineManifest string
var combineRoot string
var combineOutDir string
var combineBuildTool string
var combineLineMarkers bool
var combineDryRun bool

// combineCmd represents the combine command
var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge the manifest's sources into one amalgamated file",
	Long: `Queries the build system for the manifest's ordered source lists, builds
any generated headers, assembles the include table, and merges every
translation unit of the output target into a single file.

The run is strictly sequential: sources are merged in build order, and
each project header is expanded at its first point of inclusion across
the whole run. The output begins with a generated-file marker and an
optional build hint taken from the manifest.

Example usage:
  amalgam combine --outdir /tmp/out
  amalgam combine --manifest amalgam.toml --outdir out --line-directives
  amalgam combine --build-tool buck2 --root ~/src/proj --outdir out
  amalgam combine --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.Load(pipeline.Options{
			ManifestPath: combineManifest,
			Root:         combineRoot,
			BuildTool:    combineBuildTool,
			OutDir:       combineOutDir,
			LineMarkers:  combineLineMarkers,
		})
		if err != nil {
			return err
		}

		if combineDryRun {
			return printPlan(cmd, p)
		}

		if combineOutDir == "" {
			return fmt.Errorf("--outdir is required")
		}
		outPath, err := p.Combine()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
		return nil
	},
}

// printPlan lists the ordered translation units and the include table
// without writing anything.
func printPlan(cmd *cobra.Command, p *pipeline.Pipeline) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Translation units (%d, in build order):\n", len(p.Units))
	for _, unit := range p.Units {
		fmt.Fprintf(out, "  %s\n", unit.Rel)
	}

	literals := make([]string, 0, len(p.Table))
	for literal := range p.Table {
		literals = append(literals, literal)
	}
	sort.Strings(literals)

	fmt.Fprintf(out, "Include table (%d entries):\n", len(literals))
	for _, literal := range literals {
		fmt.Fprintf(out, "  %s: %s\n", literal, p.Table[literal].Rel)
	}
	return nil
}

func init() {
	combineCmd.Flags().StringVarP(&combineManifest, "manifest", "m", "amalgam.toml", "Path to the amalgamation manifest")
	combineCmd.Flags().StringVarP(&combineRoot, "root", "r", "", "Project root (default: queried from the build tool)")
	combineCmd.Flags().StringVarP(&combineOutDir, "outdir", "o", "", "Directory to write the amalgamated file to")
	combineCmd.Flags().StringVar(&combineBuildTool, "build-tool", "", "Build tool binary to query for sources (default: buck2)")
	combineCmd.Flags().BoolVar(&combineLineMarkers, "line-directives", false, "Emit #line directives for original-source attribution")
	combineCmd.Flags().BoolVar(&combineDryRun, "dry-run", false, "Print the source list and include table without writing")
}
