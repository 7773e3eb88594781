package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/amalgam-dev/amalgam/cmd/watch"
)

// version is set via build-time ldflags
var version = "dev"

// buildDate is set via build-time ldflags
var buildDate = "unknown"

// commit is set via build-time ldflags
var commit = "unknown"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "amalgam",
	Short: "Combine ordered C/C++ sources into self-contained files",
	Long: `Amalgam merges a project's source and header files, supplied in build
order, into one self-contained file. Each project header is inlined
exactly once at its first point of inclusion; system includes stay
declared but de-duplicated; section banners keep the merged output
navigable and diffable against the originals.

Use 'amalgam --help' to see all available commands, or 'amalgam <command> --help'
for detailed information about a specific command.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Register subcommands
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(watch.NewCommand())

	// Initialize annotations for version template
	if rootCmd.Annotations == nil {
		rootCmd.Annotations = make(map[string]string)
	}
	rootCmd.Annotations["buildDate"] = buildDate
	rootCmd.Annotations["commit"] = commit

	// Update version field dynamically (in case it was set via ldflags)
	rootCmd.Version = version

	// Customize version template to show additional build info
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
Build date: {{printf "%s" (index .Annotations "buildDate")}}
Commit: {{printf "%s" (index .Annotations "commit")}}
`)
}
