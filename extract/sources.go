package extract

import (
	"fmt"
	"regexp"
	"strings"

	"fortio.org/log"

	"github.com/amalgam-dev/amalgam/manifest"
)

// QuerySources returns the ordered source list for every manifest target.
// For each target it queries the build system's transitive inputs, keeps
// sources matching the target's filters, drops excludes, and finally
// subtracts any source already owned by one of the target's dep targets.
// The order reported by the build system is preserved; the engine depends
// on it.
func QuerySources(m *manifest.Manifest, runner CommandRunner) (map[string][]string, error) {
	result := make(map[string][]string, len(m.Targets))

	for _, name := range m.TargetNames() {
		target := m.Targets[name]

		filters, err := manifest.CompilePatterns(target.Filters)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}
		excludes, err := manifest.CompilePatterns(target.Excludes)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}

		var srcs []string
		seen := make(map[string]bool)
		for _, label := range target.BuildTargets {
			lines, err := runner.Run("cquery", fmt.Sprintf("inputs(deps('%s'))", label))
			if err != nil {
				return nil, fmt.Errorf("failed to query sources of %s: %w", label, err)
			}
			for _, src := range lines {
				if seen[src] || !keepSource(src, filters, excludes) {
					continue
				}
				seen[src] = true
				srcs = append(srcs, src)
			}
		}
		result[name] = srcs
		log.Infof("target %s: %d sources", name, len(srcs))
	}

	// Dep subtraction runs after all targets are listed so declaration
	// order in the manifest does not matter.
	for _, name := range m.TargetNames() {
		target := m.Targets[name]
		if len(target.Deps) == 0 {
			continue
		}
		owned := make(map[string]bool)
		for _, dep := range target.Deps {
			for _, src := range result[dep] {
				owned[src] = true
			}
		}
		var kept []string
		for _, src := range result[name] {
			if !owned[src] {
				kept = append(kept, src)
			}
		}
		result[name] = kept
	}

	return result, nil
}

func keepSource(src string, filters, excludes []*regexp.Regexp) bool {
	if len(filters) > 0 {
		matched := false
		for _, re := range filters {
			if re.MatchString(src) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, re := range excludes {
		if re.MatchString(src) {
			return false
		}
	}
	return true
}

// SplitSources partitions a source list into translation units and
// headers by extension.
func SplitSources(srcs []string) (units, headers []string) {
	for _, src := range srcs {
		switch {
		case hasAnySuffix(src, ".cpp", ".cc", ".c"):
			units = append(units, src)
		case hasAnySuffix(src, ".h", ".hpp"):
			headers = append(headers, src)
		}
	}
	return units, headers
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
