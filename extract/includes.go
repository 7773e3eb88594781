package extract

import (
	"fmt"
	"path"
	"strings"

	"fortio.org/log"

	"github.com/amalgam-dev/amalgam/amalg"
	"github.com/amalgam-dev/amalgam/manifest"
)

// BuildGeneratedHeaders builds schema-derived headers and returns a
// mapping from include literals to their on-disk locations. Header files
// that live under an include/ directory are mapped as-is by their path
// below it; every other source must be a schema file whose generated
// header is built through the build system and resolved to its output
// path, which usually lives outside the project root.
func BuildGeneratedHeaders(gen manifest.Generated, prefix string, srcs []string, runner CommandRunner) (map[string]string, error) {
	includeToHeader := make(map[string]string)

	for _, src := range srcs {
		if idx := strings.LastIndex(src, "/include/"); idx >= 0 {
			// Included like "flatbuffers/flatbuffers.h", without the
			// include/ directory prefix.
			includeToHeader[src[idx+len("/include/"):]] = src
			continue
		}

		if !strings.HasSuffix(src, ".fbs") {
			return nil, fmt.Errorf("unexpected generated source %q: want a .fbs file or an include/ header", src)
		}

		stem := strings.TrimSuffix(path.Base(src), ".fbs")
		header := stem + "_generated.h"

		lines, err := runner.Run("build", fmt.Sprintf("%s[%s]", gen.Target, header), "--show-full-output")
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", header, err)
		}
		if len(lines) != 1 {
			return nil, fmt.Errorf("expected one line of build output for %s, got %d", header, len(lines))
		}
		// Two fields separated by a space; the second is the absolute
		// path of the built header.
		fields := strings.SplitN(lines[0], " ", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed build output for %s: %q", header, lines[0])
		}
		built := strings.TrimSpace(fields[1])

		includeToHeader[path.Join(prefix, path.Dir(src), header)] = built
		// Generated headers include sibling generated headers without a
		// path prefix.
		includeToHeader[header] = built
		log.Infof("generated header %s -> %s", header, built)
	}

	return includeToHeader, nil
}

// BuildIncludeTable assembles the engine's include table. Project headers
// are keyed by their prefixed tree path; generated mappings are merged in
// as-is.
func BuildIncludeTable(prefix string, headers []string, generated map[string]string, resolver amalg.PathResolver) amalg.IncludeTable {
	table := make(amalg.IncludeTable, len(headers)+len(generated))
	for literal, location := range generated {
		table[literal] = resolver.Resolve(location)
	}
	for _, header := range headers {
		table[path.Join(prefix, header)] = resolver.Resolve(header)
	}
	return table
}
