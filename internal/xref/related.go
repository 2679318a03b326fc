package xref

import (
	"path/filepath"
	"sort"
)

// DefaultDepth is the BFS depth used when none is given.
const DefaultDepth = 3

// MaxDepth caps how far Related will walk regardless of the request.
const MaxDepth = 5

// ReverseRefs returns the files that reference the given file.
func (ix *Index) ReverseRefs(path string) []string {
	rel := filepath.ToSlash(path)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var sources []string
	for file, e := range ix.files {
		for _, ref := range e.refs {
			if ref == rel {
				sources = append(sources, file)
				break
			}
		}
	}
	sort.Strings(sources)
	return sources
}

// Related returns files within the given BFS depth of path, walking both
// forward and reverse edges. The start file itself is excluded. Depth is
// clamped to [1, MaxDepth]; zero means DefaultDepth.
func (ix *Index) Related(path string, depth int) []string {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	start := filepath.ToSlash(path)

	ix.mu.RLock()
	// Undirected adjacency built once per query; the index stays read-locked
	// for the whole walk.
	neighbors := func(file string) []string {
		var out []string
		if e, ok := ix.files[file]; ok {
			out = append(out, e.refs...)
		}
		for other, e := range ix.files {
			for _, ref := range e.refs {
				if ref == file {
					out = append(out, other)
					break
				}
			}
		}
		return out
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, file := range frontier {
			for _, n := range neighbors(file) {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	ix.mu.RUnlock()

	delete(visited, start)
	related := make([]string, 0, len(visited))
	for file := range visited {
		related = append(related, file)
	}
	sort.Strings(related)
	return related
}
