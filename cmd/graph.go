package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/amalgam-dev/amalgam/pipeline"
)

var graphManifest string
var graphRoot string
var graphBuildTool string
var graphFormat string

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the include graph and report cycles",
	Long: `Builds the file-inclusion graph over the manifest's sources and include
table: an edge A -> B means A includes a header the table resolves to B.

Cycles make an amalgamation run impossible and are reported with a
non-zero exit code, so this doubles as a pre-flight check for combine.

Output formats:
  - list: each file followed by its resolved includes (default)
  - dot:  Graphviz DOT format for visualization

Example usage:
  amalgam graph
  amalgam graph --format=dot | dot -Tsvg -o includes.svg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.Load(pipeline.Options{
			ManifestPath: graphManifest,
			Root:         graphRoot,
			BuildTool:    graphBuildTool,
		})
		if err != nil {
			return err
		}

		graph, err := p.Graph()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch graphFormat {
		case "dot":
			dot, err := graph.DOT()
			if err != nil {
				return err
			}
			fmt.Fprint(out, dot)
		case "list":
			adjacency, err := graph.Adjacency()
			if err != nil {
				return err
			}
			files := make([]string, 0, len(adjacency))
			for file := range adjacency {
				files = append(files, file)
			}
			sort.Strings(files)
			for _, file := range files {
				fmt.Fprintf(out, "%s\n", file)
				for _, dep := range adjacency[file] {
					fmt.Fprintf(out, "  -> %s\n", dep)
				}
			}
		default:
			return fmt.Errorf("unknown format %q: expected list or dot", graphFormat)
		}

		cycles, err := graph.Cycles()
		if err != nil {
			return err
		}
		if len(cycles) > 0 {
			for _, cycle := range cycles {
				fmt.Fprintf(cmd.ErrOrStderr(), "cycle: %v\n", cycle)
			}
			return fmt.Errorf("include graph has %d cycle(s)", len(cycles))
		}
		return nil
	},
}

func init() {
	graphCmd.Flags().StringVarP(&graphManifest, "manifest", "m", "amalgam.toml", "Path to the amalgamation manifest")
	graphCmd.Flags().StringVarP(&graphRoot, "root", "r", "", "Project root (default: queried from the build tool)")
	graphCmd.Flags().StringVar(&graphBuildTool, "build-tool", "", "Build tool binary to query for sources (default: buck2)")
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "list", "Output format: list or dot")
}
