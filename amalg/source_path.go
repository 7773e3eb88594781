package amalg

import (
	"fmt"
	"path/filepath"
)

// SourcePath is an immutable view of one input file, resolved against a
// project root.
type SourcePath struct {
	// Root is the project root the path was resolved against.
	Root string
	// Abs is the canonical absolute path. It is the identity key used for
	// include de-duplication, so the same file always canonicalizes to the
	// same Abs regardless of how it was spelled.
	Abs string
	// Rel is the path relative to Root, used for banners and line
	// directives. It may contain ".." segments when the file lives outside
	// the root, e.g. generated headers in a build output tree.
	Rel string
}

// PathResolver resolves source specs relative to a configured project root.
type PathResolver struct {
	root string
}

// NewPathResolver creates a resolver rooted at root. An empty root means
// the current working directory.
func NewPathResolver(root string) (PathResolver, error) {
	if root == "" {
		root = "."
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return PathResolver{}, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}
	return PathResolver{root: filepath.Clean(absRoot)}, nil
}

// Root returns the absolute project root.
func (r PathResolver) Root() string {
	return r.root
}

// Resolve canonicalizes spec into a SourcePath. Relative specs are joined
// to the root first. Resolution is purely lexical: the file is not opened
// and need not exist, so failure is deferred to the first read.
func (r PathResolver) Resolve(spec string) SourcePath {
	if !filepath.IsAbs(spec) {
		spec = filepath.Join(r.root, spec)
	}
	abs := filepath.Clean(spec)

	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		// Unrelatable paths (e.g. different volumes) keep the absolute
		// form for display; identity still comes from Abs.
		rel = abs
	}
	return SourcePath{Root: r.root, Abs: abs, Rel: rel}
}
