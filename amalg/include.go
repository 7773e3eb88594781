package amalg

import "regexp"

// DelimiterStyle distinguishes the two include spellings.
type DelimiterStyle int

const (
	// AngleDelimiter is a <...> include, conventionally a system header.
	AngleDelimiter DelimiterStyle = iota
	// QuoteDelimiter is a "..." include, conventionally a project header.
	QuoteDelimiter
)

// IncludeDirective is one parsed #include line.
type IncludeDirective struct {
	// Path is the include text with its delimiters stripped. It is the
	// lookup key into an IncludeTable.
	Path  string
	Style DelimiterStyle
}

// includePattern matches an include directive and captures either the
// angle-bracketed or the quoted include path. This is deliberately a
// single-purpose line matcher, not a preprocessor: lines it does not
// match, including directives with unterminated delimiters, are treated
// as ordinary source lines.
var includePattern = regexp.MustCompile(`^\s*#\s*include\s*(?:<([^>]*)>|"([^"]*)")`)

// pragmaOncePattern matches a "#pragma once" header guard.
var pragmaOncePattern = regexp.MustCompile(`^\s*#\s*pragma\s+once\b`)

// ParseInclude reports whether line is an include directive and, if so,
// which file it names.
func ParseInclude(line string) (IncludeDirective, bool) {
	idx := includePattern.FindStringSubmatchIndex(line)
	if idx == nil {
		return IncludeDirective{}, false
	}
	if idx[2] >= 0 {
		return IncludeDirective{Path: line[idx[2]:idx[3]], Style: AngleDelimiter}, true
	}
	return IncludeDirective{Path: line[idx[4]:idx[5]], Style: QuoteDelimiter}, true
}

// IsPragmaOnce reports whether line is a "#pragma once" guard.
func IsPragmaOnce(line string) bool {
	return pragmaOncePattern.MatchString(line)
}
