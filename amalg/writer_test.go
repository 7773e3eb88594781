package amalg

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memReader serves file content from a map keyed by absolute path.
func memReader(files map[string]string) ContentReader {
	return func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such file: %s", path)
		}
		return []byte(content), nil
	}
}

func testResolver(t *testing.T) PathResolver {
	t.Helper()
	resolver, err := NewPathResolver("/proj")
	require.NoError(t, err)
	return resolver
}

func TestWriter_InlinesHeaderOnce_SecondIncludeCommented(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "#include \"b.h\"\n#include \"b.h\"\nint main() {}\n",
		"/proj/b.h":   "int util();\n",
	}
	table := IncludeTable{"b.h": resolver.Resolve("b.h")}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "Begin file b.h"), "header must be expanded exactly once")
	assert.Equal(t, 1, strings.Count(got, "int util();"))
	assert.Contains(t, got, "/* #include \"b.h\" */\n", "second include must be commented, not dropped")
}

func TestWriter_SharedHeader_ExpandedAtFirstEncounter(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "#include \"b.h\"\nint a();\n",
		"/proj/c.cpp": "#include \"b.h\"\nint c();\n",
		"/proj/b.h":   "int util();\n",
	}
	table := IncludeTable{"b.h": resolver.Resolve("b.h")}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))
	require.NoError(t, w.WriteFile(resolver.Resolve("c.cpp")))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "Begin file b.h"))
	assert.Contains(t, got, "Include b.h in the middle of a.cpp")
	// The expansion sits in a.cpp's section; c.cpp only carries the trail.
	cSection := got[strings.Index(got, "Begin file c.cpp"):]
	assert.Contains(t, cSection, "/* #include \"b.h\" */\n")
	assert.NotContains(t, cSection, "int util();")
}

func TestWriter_SystemInclude_PassedThroughOncePerRun(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "#include <stdio.h>\nint a();\n",
		"/proj/c.cpp": "#include <stdio.h>\nint c();\n",
	}

	var out bytes.Buffer
	w := NewWriter(&out, IncludeTable{}, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))
	require.NoError(t, w.WriteFile(resolver.Resolve("c.cpp")))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "#include <stdio.h>\n"), "literal must pass through exactly once")
	assert.Equal(t, 1, strings.Count(got, "/* #include <stdio.h> */\n"))
	// The verbatim occurrence is in a.cpp's section, the comment in c.cpp's.
	cSection := got[strings.Index(got, "Begin file c.cpp"):]
	assert.Contains(t, cSection, "/* #include <stdio.h> */\n")
}

func TestWriter_SystemAndLocalKeys_DoNotCollide(t *testing.T) {
	resolver := testResolver(t)
	// The opaque literal equals the local header's absolute path; the two
	// must still dedup independently.
	literal := "/proj/b.h"
	files := map[string]string{
		"/proj/a.cpp": "#include \"b.h\"\n#include <" + literal + ">\nint a();\n",
		"/proj/b.h":   "int util();\n",
	}
	table := IncludeTable{"b.h": resolver.Resolve("b.h")}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "Begin file b.h"))
	assert.Contains(t, got, "#include <"+literal+">\n", "opaque include must pass through despite matching a seen path")
}

func TestWriter_NestedHeaders_DepthFirst(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "#include \"b.h\"\nint a();\n",
		"/proj/b.h":   "#include \"c.h\"\nint b();\n",
		"/proj/c.h":   "int c();\n",
	}
	table := IncludeTable{
		"b.h": resolver.Resolve("b.h"),
		"c.h": resolver.Resolve("c.h"),
	}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))

	got := out.String()
	assert.Contains(t, got, "Include b.h in the middle of a.cpp")
	assert.Contains(t, got, "Include c.h in the middle of b.h")
	assert.Contains(t, got, "Continuing where we left off in b.h")
	assert.Contains(t, got, "Continuing where we left off in a.cpp")
	assert.Less(t, strings.Index(got, "int c();"), strings.Index(got, "int b();"),
		"inner header content must land before the line that included it")
}

func TestWriter_IncludeCycle_ReturnsCycleError(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "#include \"b.h\"\n",
		"/proj/b.h":   "#include \"c.h\"\n",
		"/proj/c.h":   "#include \"b.h\"\n",
	}
	table := IncludeTable{
		"b.h": resolver.Resolve("b.h"),
		"c.h": resolver.Resolve("c.h"),
	}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{Read: memReader(files)})
	err := w.WriteFile(resolver.Resolve("a.cpp"))

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a.cpp", "b.h", "c.h", "b.h"}, cycleErr.Stack)
}

func TestWriter_PragmaOnce_StrippedOnlyWhenInlined(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "#pragma once\n#include \"b.h\"\nint a();\n",
		"/proj/b.h":   "#pragma once\nint util();\n",
	}
	table := IncludeTable{"b.h": resolver.Resolve("b.h")}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))

	got := out.String()
	// Top-level translation units keep their text intact.
	assert.Contains(t, got, "#pragma once\n")
	// The inlined header's guard is neutralized but still visible.
	assert.Contains(t, got, "/* #pragma once */\n")
}

func TestWriter_LineMarkers(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "#include \"b.h\"\nint a();\n",
		"/proj/b.h":   "int util();\n",
	}
	table := IncludeTable{"b.h": resolver.Resolve("b.h")}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{LineMarkers: true, Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))

	got := out.String()
	assert.Contains(t, got, "#line 1 \"a.cpp\"\n")
	assert.Contains(t, got, "#line 1 \"b.h\"\n")
	// Attribution resumes at the line after the include.
	assert.Contains(t, got, "#line 2 \"a.cpp\"\n")
}

func TestWriter_UnreadableFile_Fatal(t *testing.T) {
	resolver := testResolver(t)

	var out bytes.Buffer
	w := NewWriter(&out, IncludeTable{}, WriterOptions{Read: memReader(nil)})
	err := w.WriteFile(resolver.Resolve("missing.cpp"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/proj/missing.cpp")
}

func TestWriter_DuplicateTopLevel_EmptySecondSection(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "int a();\n",
	}

	var out bytes.Buffer
	w := NewWriter(&out, IncludeTable{}, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))

	got := out.String()
	assert.Equal(t, 2, strings.Count(got, "Begin file a.cpp"))
	assert.Equal(t, 2, strings.Count(got, "End of a.cpp"))
	assert.Equal(t, 1, strings.Count(got, "int a();"), "second section must not repeat the content")
}

func TestWriter_CRLFInput_NormalizedToLF(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/a.cpp": "int a();\r\nint b();\r\n",
	}

	var out bytes.Buffer
	w := NewWriter(&out, IncludeTable{}, WriterOptions{Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("a.cpp")))

	got := out.String()
	assert.NotContains(t, got, "\r")
	assert.Contains(t, got, "int a();\nint b();\n")
}

func TestWriter_Amalgamation_Golden(t *testing.T) {
	resolver := testResolver(t)
	files := map[string]string{
		"/proj/src/main.cpp": "#include \"proj/src/util.h\"\n#include <stdio.h>\n\nint main() {\n  printf(\"%d\\n\", util());\n  return 0;\n}\n",
		"/proj/src/util.cpp": "#include \"proj/src/util.h\"\n#include <stdlib.h>\n#include <stdio.h>\n\nint util() {\n  return 42;\n}\n",
		"/proj/src/util.h":   "#pragma once\n#include <stdio.h>\n\nint util();\n",
	}
	table := IncludeTable{"proj/src/util.h": resolver.Resolve("src/util.h")}

	var out bytes.Buffer
	w := NewWriter(&out, table, WriterOptions{LineMarkers: true, Read: memReader(files)})
	require.NoError(t, w.WriteFile(resolver.Resolve("src/main.cpp")))
	require.NoError(t, w.WriteFile(resolver.Resolve("src/util.cpp")))

	g := goldie.New(t, goldie.WithNameSuffix(".golden.c"))
	g.Assert(t, "amalgamation", out.Bytes())
}

func TestCycleError_Message(t *testing.T) {
	err := &CycleError{Stack: []string{"a.cpp", "b.h", "c.h", "b.h"}}
	assert.Equal(t, "include cycle detected: a.cpp -> b.h -> c.h -> b.h", err.Error())
	assert.True(t, errors.As(error(err), new(*CycleError)))
}
