package amalg

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ContentReader reads the content of a source file given its absolute
// path. Callers can substitute a non-filesystem reader in tests or when
// sources come from somewhere other than disk.
type ContentReader func(path string) ([]byte, error)

// IncludeTable maps an include literal, delimiters stripped, to the file
// that should be inlined for it. Literals absent from the table are
// opaque system includes: passed through verbatim once per run, commented
// out on repeats, never inlined.
type IncludeTable map[string]SourcePath

// opaquePrefix namespaces system-include keys in the seen set so they can
// never collide with a local header's absolute path.
const opaquePrefix = "<system>"

// CycleError reports an include cycle discovered mid-expansion.
type CycleError struct {
	// Stack holds the root-relative paths of files still being expanded,
	// outermost first. The last entry is the file that reappeared.
	Stack []string
}

func (e *CycleError) Error() string {
	return "include cycle detected: " + strings.Join(e.Stack, " -> ")
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	// LineMarkers enables #line directives tying output back to the
	// original files for compilers and debuggers.
	LineMarkers bool
	// Read overrides how file content is loaded. Defaults to os.ReadFile.
	Read ContentReader
}

// Writer merges ordered source files into a single output stream,
// expanding each table-resolved include at its first point of inclusion
// and commenting out every later reference.
//
// A Writer holds the seen-state for exactly one amalgamation run. It is
// strictly sequential and not safe for concurrent use; output placement
// depends on the order WriteFile is called in.
type Writer struct {
	out         io.Writer
	includes    IncludeTable
	lineMarkers bool
	read        ContentReader

	// seen records absolute header paths and opaque-prefixed system
	// include literals that have already been emitted.
	seen map[string]bool
	// inProgress is the expansion stack; inProgressSet mirrors it for
	// O(1) cycle checks.
	inProgress    []string
	inProgressSet map[string]bool

	err error
}

// NewWriter creates a Writer that appends to out, resolving includes
// through the given table. The table is read-only for the lifetime of
// the run.
func NewWriter(out io.Writer, includes IncludeTable, opts WriterOptions) *Writer {
	read := opts.Read
	if read == nil {
		read = os.ReadFile
	}
	return &Writer{
		out:           out,
		includes:      includes,
		lineMarkers:   opts.LineMarkers,
		read:          read,
		seen:          make(map[string]bool),
		inProgressSet: make(map[string]bool),
	}
}

// WriteFile streams src into the output as one bounded Begin/End section.
// An unreadable file is fatal: the run aborts and the destination must be
// discarded. A file reached again while its own expansion is still open
// yields a CycleError instead of unbounded recursion.
//
// Top-level duplicates are legal: a source whose absolute path was
// already emitted earlier in the run produces an empty section rather
// than a second expansion.
func (w *Writer) WriteFile(src SourcePath) error {
	return w.writeFile(src, false)
}

// writeFile does the work of WriteFile. asHeader is true when src was
// reached through the include table rather than the ordered source list;
// only then are "#pragma once" guards commented out, since a top-level
// translation unit keeps its text intact.
func (w *Writer) writeFile(src SourcePath, asHeader bool) error {
	if w.inProgressSet[src.Abs] {
		return w.cycleError(src.Rel)
	}

	if w.seen[src.Abs] {
		w.emit(sectionComment("Begin file " + src.Rel))
		w.emit(sectionComment("End of " + src.Rel))
		return w.err
	}
	w.seen[src.Abs] = true

	data, err := w.read(src.Abs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src.Abs, err)
	}

	w.inProgressSet[src.Abs] = true
	w.inProgress = append(w.inProgress, src.Rel)
	defer func() {
		delete(w.inProgressSet, src.Abs)
		w.inProgress = w.inProgress[:len(w.inProgress)-1]
	}()

	w.emit(sectionComment("Begin file " + src.Rel))
	if w.lineMarkers {
		w.emit(fmt.Sprintf("#line 1 %q\n", src.Rel))
	}

	for i, line := range splitLines(data) {
		if err := w.writeLine(src, line, i+1, asHeader); err != nil {
			return err
		}
	}

	w.emit(sectionComment("End of " + src.Rel))
	return w.err
}

// writeLine emits one source line, inlining or suppressing include
// directives as the seen-state dictates. lineno is 1-based.
func (w *Writer) writeLine(src SourcePath, line string, lineno int, asHeader bool) error {
	dir, ok := ParseInclude(line)
	if !ok {
		if asHeader && IsPragmaOnce(line) {
			// Guards are redundant once a header is inlined; top-level
			// units keep their text intact.
			w.emit(commentOut(line))
			return nil
		}
		w.emit(line + "\n")
		return nil
	}

	target, resolved := w.includes[dir.Path]
	if !resolved {
		key := opaquePrefix + dir.Path
		if w.seen[key] {
			w.emit(commentOut(line))
		} else {
			w.seen[key] = true
			w.emit(line + "\n")
		}
		return nil
	}

	if w.inProgressSet[target.Abs] {
		return w.cycleError(target.Rel)
	}
	if w.seen[target.Abs] {
		w.emit(commentOut(line))
		return nil
	}

	w.emit(sectionComment(fmt.Sprintf("Include %s in the middle of %s", target.Rel, src.Rel)))
	if err := w.writeFile(target, true); err != nil {
		return err
	}
	w.emit(sectionComment(fmt.Sprintf("Continuing where we left off in %s", src.Rel)))
	if w.lineMarkers {
		// Re-anchor to the line after the include so attribution resumes
		// correctly past the inlined block.
		w.emit(fmt.Sprintf("#line %d %q\n", lineno+1, src.Rel))
	}
	return nil
}

func (w *Writer) cycleError(rel string) *CycleError {
	stack := make([]string, 0, len(w.inProgress)+1)
	stack = append(stack, w.inProgress...)
	stack = append(stack, rel)
	return &CycleError{Stack: stack}
}

// emit appends s to the output, remembering the first write failure.
func (w *Writer) emit(s string) {
	if w.err != nil {
		return
	}
	if _, err := io.WriteString(w.out, s); err != nil {
		w.err = fmt.Errorf("failed to write output: %w", err)
	}
}

// splitLines splits file content into lines, accepting both \n and \r\n
// endings. Output line endings are normalized to \n by the emit path.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
