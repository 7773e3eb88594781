package amalg

import (
	"strings"

	"fortio.org/log"
)

// outputColumns is the width section banners are padded to.
const outputColumns = 80

// sectionComment renders a banner line such as
//
//	/************** Begin file runtime/program.cpp *****************/
//
// padded with stars to outputColumns. A title too long for the width gets
// no padding but is never truncated.
func sectionComment(text string) string {
	line := "/************** " + text + " "
	if remainder := outputColumns - len(line) - 2; remainder > 0 {
		line += strings.Repeat("*", remainder)
	}
	return line + "*/\n"
}

// commentOut wraps a source line in a block comment so the original text
// stays visible in the output without being compiled. Comment tokens
// embedded in the line are defused first so the wrapper cannot be closed
// or reopened early.
func commentOut(line string) string {
	return "/* " + defuseCommentTokens(line) + " */\n"
}

// defuseCommentTokens substitutes any "*/" and "/*" token pairs inside
// line with spaced placeholders. Substitution prefers over-escaping: the
// result may not round-trip exactly, but the wrapping comment can never
// be broken.
func defuseCommentTokens(line string) string {
	if !strings.Contains(line, "*/") && !strings.Contains(line, "/*") {
		return line
	}
	log.Warnf("defusing comment tokens while commenting out %q", line)
	line = strings.ReplaceAll(line, "*/", "* /")
	return strings.ReplaceAll(line, "/*", "/ *")
}
