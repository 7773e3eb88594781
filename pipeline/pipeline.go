// Package pipeline wires the manifest, the build-system query layer, and
// the amalgamation engine into one runnable flow shared by the combine,
// graph, and watch commands.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/log"

	"github.com/amalgam-dev/amalgam/amalg"
	"github.com/amalgam-dev/amalgam/extract"
	"github.com/amalgam-dev/amalgam/manifest"
)

// Options configure one pipeline run.
type Options struct {
	// ManifestPath locates the amalgam.toml manifest.
	ManifestPath string
	// Root overrides the project root. Empty means ask the build tool,
	// falling back to the current directory.
	Root string
	// BuildTool is the build-system binary to query. Empty means buck2.
	BuildTool string
	// OutDir is the directory the output file is written to.
	OutDir string
	// LineMarkers enables #line directives in the output.
	LineMarkers bool
}

// Pipeline holds the resolved inputs of one amalgamation run.
type Pipeline struct {
	Manifest *manifest.Manifest
	Resolver amalg.PathResolver
	// Units are the ordered translation units of the output target.
	Units []amalg.SourcePath
	// Table maps include literals to the files inlined for them.
	Table amalg.IncludeTable

	opts Options
}

// Load queries the build system and assembles everything the engine
// needs: the ordered source list and the include table.
func Load(opts Options) (*Pipeline, error) {
	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	return load(m, extract.NewRunner(opts.BuildTool, opts.Root), opts)
}

// LoadWith is Load with an injected manifest and runner, for tests and
// callers that already hold them.
func LoadWith(m *manifest.Manifest, runner extract.CommandRunner, opts Options) (*Pipeline, error) {
	return load(m, runner, opts)
}

func load(m *manifest.Manifest, runner extract.CommandRunner, opts Options) (*Pipeline, error) {
	root := opts.Root
	if root == "" {
		queried, err := extract.ProjectRoot(runner)
		if err != nil {
			log.Warnf("using current directory as root: %v", err)
			queried = "."
		}
		root = queried
	}

	resolver, err := amalg.NewPathResolver(root)
	if err != nil {
		return nil, err
	}
	log.Infof("project root %s", resolver.Root())

	srcsByTarget, err := extract.QuerySources(m, runner)
	if err != nil {
		return nil, err
	}

	generated := map[string]string{}
	if m.Generated.Target != "" {
		generated, err = extract.BuildGeneratedHeaders(
			m.Generated, m.IncludePrefix, srcsByTarget[m.Generated.SourcesFrom], runner)
		if err != nil {
			return nil, err
		}
	}

	units, headers := extract.SplitSources(srcsByTarget[m.Output.Target])
	if len(units) == 0 {
		return nil, fmt.Errorf("target %q has no translation units to amalgamate", m.Output.Target)
	}

	resolved := make([]amalg.SourcePath, 0, len(units))
	for _, unit := range units {
		resolved = append(resolved, resolver.Resolve(unit))
	}

	return &Pipeline{
		Manifest: m,
		Resolver: resolver,
		Units:    resolved,
		Table:    extract.BuildIncludeTable(m.IncludePrefix, headers, generated, resolver),
		opts:     opts,
	}, nil
}

// Graph builds the include graph over the pipeline's inputs.
func (p *Pipeline) Graph() (*amalg.IncludeGraph, error) {
	return amalg.BuildIncludeGraph(p.Units, p.Table, os.ReadFile)
}

// Combine writes the amalgamated output file and returns its path. On
// error the destination is left incomplete and must be discarded.
func (p *Pipeline) Combine() (string, error) {
	// Pre-flight: a cyclic include table fails before the output file is
	// touched, with every cycle reported at once.
	graph, err := p.Graph()
	if err != nil {
		return "", err
	}
	cycles, err := graph.Cycles()
	if err != nil {
		return "", err
	}
	if len(cycles) > 0 {
		return "", fmt.Errorf("include table has cycles: %v", cycles)
	}

	outPath := filepath.Join(p.opts.OutDir, p.Manifest.Output.Name)
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()

	// Split so this file is not itself flagged as generated.
	header := "/* @" + "generated */\n"
	if _, err := f.WriteString(header); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	if hint := p.Manifest.Output.BuildHint; hint != "" {
		if _, err := fmt.Fprintf(f, "/* Try building with: %s */\n", hint); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", outPath, err)
		}
	}

	writer := amalg.NewWriter(f, p.Table, amalg.WriterOptions{LineMarkers: p.opts.LineMarkers})
	for _, unit := range p.Units {
		if err := writer.WriteFile(unit); err != nil {
			return "", err
		}
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", outPath, err)
	}
	log.Infof("wrote %s from %d translation units", outPath, len(p.Units))
	return outPath, nil
}
