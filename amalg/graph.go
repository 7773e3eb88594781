package amalg

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"fortio.org/log"
	graphlib "github.com/dominikbraun/graph"
)

// IncludeGraph is the directed file-inclusion graph over an ordered
// source list and its include table. Vertices are root-relative paths;
// an edge A -> B means A contains an include directive that the table
// resolves to B.
type IncludeGraph struct {
	g     graphlib.Graph[string, string]
	roots []string
}

// BuildIncludeGraph scans each ordered source and every table-resolved
// header reachable from it. Unreadable files are skipped with a warning
// so the graph stays usable as a pre-flight check before artifacts are
// built; the Writer still treats them as fatal during a real run.
func BuildIncludeGraph(srcs []SourcePath, includes IncludeTable, read ContentReader) (*IncludeGraph, error) {
	ig := &IncludeGraph{
		g: graphlib.New(graphlib.StringHash, graphlib.Directed()),
	}

	visited := make(map[string]bool)
	var scan func(src SourcePath) error
	scan = func(src SourcePath) error {
		if visited[src.Abs] {
			return nil
		}
		visited[src.Abs] = true

		if err := ig.addVertex(src.Rel); err != nil {
			return err
		}

		data, err := read(src.Abs)
		if err != nil {
			log.Warnf("skipping unreadable file in include graph: %v", err)
			return nil
		}

		for _, line := range splitLines(data) {
			dir, ok := ParseInclude(line)
			if !ok {
				continue
			}
			target, resolved := includes[dir.Path]
			if !resolved {
				continue
			}
			if err := ig.addVertex(target.Rel); err != nil {
				return err
			}
			if err := ig.addEdge(src.Rel, target.Rel); err != nil {
				return err
			}
			if err := scan(target); err != nil {
				return err
			}
		}
		return nil
	}

	for _, src := range srcs {
		if !visited[src.Abs] {
			ig.roots = append(ig.roots, src.Rel)
		}
		if err := scan(src); err != nil {
			return nil, err
		}
	}
	return ig, nil
}

func (ig *IncludeGraph) addVertex(rel string) error {
	err := ig.g.AddVertex(rel)
	if err != nil && !errors.Is(err, graphlib.ErrVertexAlreadyExists) {
		return fmt.Errorf("failed to add graph vertex %q: %w", rel, err)
	}
	return nil
}

func (ig *IncludeGraph) addEdge(from, to string) error {
	err := ig.g.AddEdge(from, to)
	if err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
		return fmt.Errorf("failed to add graph edge %q -> %q: %w", from, to, err)
	}
	return nil
}

// Adjacency returns each file's resolved includes, sorted for stable
// output.
func (ig *IncludeGraph) Adjacency() (map[string][]string, error) {
	adjacency, err := ig.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to compute adjacency: %w", err)
	}

	result := make(map[string][]string, len(adjacency))
	for node, edges := range adjacency {
		deps := make([]string, 0, len(edges))
		for dep := range edges {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		result[node] = deps
	}
	return result, nil
}

// Cycles returns every include cycle as a sorted list of member files.
// An empty result means the table is safe to amalgamate.
func (ig *IncludeGraph) Cycles() ([][]string, error) {
	sccs, err := graphlib.StronglyConnectedComponents(ig.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute strongly connected components: %w", err)
	}

	adjacency, err := ig.g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to compute adjacency: %w", err)
	}

	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) > 1 {
			members := append([]string{}, scc...)
			sort.Strings(members)
			cycles = append(cycles, members)
			continue
		}
		// A single-node component is a cycle only when it includes itself.
		node := scc[0]
		if _, ok := adjacency[node][node]; ok {
			cycles = append(cycles, []string{node})
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], ",") < strings.Join(cycles[j], ",")
	})
	return cycles, nil
}

// DOT renders the graph in Graphviz DOT format.
func (ig *IncludeGraph) DOT() (string, error) {
	adjacency, err := ig.Adjacency()
	if err != nil {
		return "", err
	}

	nodes := make([]string, 0, len(adjacency))
	for node := range adjacency {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var b strings.Builder
	b.WriteString("digraph includes {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, node := range nodes {
		fmt.Fprintf(&b, "  %q;\n", node)
	}
	for _, node := range nodes {
		for _, dep := range adjacency[node] {
			fmt.Fprintf(&b, "  %q -> %q;\n", node, dep)
		}
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// Roots returns the top-level sources in their original order.
func (ig *IncludeGraph) Roots() []string {
	return ig.roots
}
