// Package manifest loads and validates the TOML manifest that describes
// which build targets contribute sources to an amalgamation run.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/BurntSushi/toml"
)

// Target names a group of build targets whose sources take part in the
// amalgamation.
type Target struct {
	// BuildTargets are the build-system labels to query for sources.
	BuildTargets []string `toml:"build_targets"`
	// Filters keep only matching source paths. An empty list keeps
	// everything.
	Filters []string `toml:"filters"`
	// Excludes drop matching source paths after filtering.
	Excludes []string `toml:"excludes"`
	// Deps name other manifest targets whose sources are subtracted from
	// this one, so shared inputs end up in exactly one place.
	Deps []string `toml:"deps"`
}

// Generated describes headers that must be built before their on-disk
// location is known, e.g. schema-compiler output.
type Generated struct {
	// Target is the build label that produces the headers. A named output
	// is requested per header, as "<target>[<header>]".
	Target string `toml:"target"`
	// SourcesFrom names the manifest target whose sources drive header
	// generation.
	SourcesFrom string `toml:"sources_from"`
}

// Output describes the amalgamated file to generate.
type Output struct {
	// Name is the output file name, created under the output directory.
	Name string `toml:"name"`
	// Target names the manifest target whose sources are merged.
	Target string `toml:"target"`
	// BuildHint is a one-line compile command embedded in the output
	// header comment.
	BuildHint string `toml:"build_hint"`
}

// Manifest is the parsed amalgam.toml.
type Manifest struct {
	// IncludePrefix is the path prefix projects use in their own include
	// directives, e.g. "myproj" for #include "myproj/runtime/program.h".
	IncludePrefix string            `toml:"include_prefix"`
	Targets       map[string]Target `toml:"targets"`
	Generated     Generated         `toml:"generated"`
	Output        Output            `toml:"output"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates manifest content.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Targets) == 0 {
		return fmt.Errorf("manifest defines no targets")
	}

	for _, name := range m.TargetNames() {
		target := m.Targets[name]
		if len(target.BuildTargets) == 0 {
			return fmt.Errorf("target %q has no build_targets", name)
		}
		if _, err := CompilePatterns(target.Filters); err != nil {
			return fmt.Errorf("target %q: %w", name, err)
		}
		if _, err := CompilePatterns(target.Excludes); err != nil {
			return fmt.Errorf("target %q: %w", name, err)
		}
		for _, dep := range target.Deps {
			if _, ok := m.Targets[dep]; !ok {
				return fmt.Errorf("target %q depends on unknown target %q", name, dep)
			}
		}
	}

	if m.Output.Name == "" {
		return fmt.Errorf("output.name is required")
	}
	if _, ok := m.Targets[m.Output.Target]; !ok {
		return fmt.Errorf("output names unknown target %q", m.Output.Target)
	}
	if m.Generated.Target != "" {
		if _, ok := m.Targets[m.Generated.SourcesFrom]; !ok {
			return fmt.Errorf("generated.sources_from names unknown target %q", m.Generated.SourcesFrom)
		}
	}
	return nil
}

// TargetNames returns the target names in sorted order, for deterministic
// processing.
func (m *Manifest) TargetNames() []string {
	names := make([]string, 0, len(m.Targets))
	for name := range m.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CompilePatterns compiles a pattern list, naming the offending pattern
// on failure.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
