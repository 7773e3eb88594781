package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amalgam-dev/amalgam/pipeline"
)

type watchOptions struct {
	manifestPath string
	root         string
	outDir       string
	buildTool    string
	lineMarkers  bool
}

// NewCommand returns a new watch command instance.
func NewCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-amalgamate whenever a source file changes",
		Long: `Watches the project root for changes to sources, headers, schema files,
and the manifest, and re-runs the combine pipeline after each change.
The output file is rewritten in place; a failed rebuild leaves the
previous output untouched and logs the error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "amalgam.toml", "Path to the amalgamation manifest")
	cmd.Flags().StringVarP(&opts.root, "root", "r", "", "Project root (default: queried from the build tool)")
	cmd.Flags().StringVarP(&opts.outDir, "outdir", "o", "", "Directory to write the amalgamated file to")
	cmd.Flags().StringVar(&opts.buildTool, "build-tool", "", "Build tool binary to query for sources (default: buck2)")
	cmd.Flags().BoolVar(&opts.lineMarkers, "line-directives", false, "Emit #line directives for original-source attribution")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	if opts.outDir == "" {
		return fmt.Errorf("--outdir is required")
	}

	rebuild := func() (string, error) {
		p, err := pipeline.Load(pipeline.Options{
			ManifestPath: opts.manifestPath,
			Root:         opts.root,
			BuildTool:    opts.buildTool,
			OutDir:       opts.outDir,
			LineMarkers:  opts.lineMarkers,
		})
		if err != nil {
			return "", err
		}
		return p.Combine()
	}

	outPath, err := rebuild()
	if err != nil {
		return fmt.Errorf("initial amalgamation failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)

	watchRoot := opts.root
	if watchRoot == "" {
		watchRoot = "."
	}
	absWatchRoot, err := filepath.Abs(watchRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve watch root: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s\n", absWatchRoot)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl+C to stop\n")

	return watchAndRebuild(ctx, absWatchRoot, rebuild)
}
