// Package xref maintains a cross-reference index over a source tree: which
// files refer to which, via Go import statements and RELATES_TO: comment
// annotations. The index is incremental, rescanning only files whose mtime
// or size changed, so hooks can afford to consult it on every iteration.
package xref

import (
	"bytes"
	"context"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gorewood/cadence/internal/output"
)

// maxFileSize is the largest file the scanner will read.
const maxFileSize = 1 << 20

// scanWorkers bounds the concurrent parse group.
const scanWorkers = 8

// relatesToRe matches RELATES_TO: annotations in any text file.
// The target is a path relative to the scan root.
var relatesToRe = regexp.MustCompile(`RELATES_TO:\s*(\S+)`)

// moduleRe extracts the module path from a go.mod file.
var moduleRe = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	"vendor":       true,
	"testdata":     true,
	"node_modules": true,
}

// entry is the cached scan result for one file.
type entry struct {
	modTime time.Time
	size    int64
	refs    []string // outgoing references, paths relative to root
}

// Index is the cross-reference index for one source tree.
type Index struct {
	root string

	mu         sync.RWMutex
	modulePath string
	files      map[string]*entry
}

// New creates an empty index rooted at the given directory.
func New(root string) *Index {
	return &Index{root: root, files: map[string]*entry{}}
}

// Root returns the scan root.
func (ix *Index) Root() string {
	return ix.root
}

// Stats summarizes one scan.
type Stats struct {
	Files    int           `json:"files"`
	Scanned  int           `json:"scanned"`
	Cached   int           `json:"cached"`
	Refs     int           `json:"refs"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration"`
}

// Scan walks the tree and brings the index up to date. Unchanged files are
// served from cache; changed ones are re-parsed by a bounded worker group.
func (ix *Index) Scan(ctx context.Context) (*Stats, error) {
	start := time.Now()

	ix.refreshModulePath()

	candidates, err := ix.collect()
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(candidates))
	var toScan []candidate

	ix.mu.RLock()
	for _, c := range candidates {
		present[c.rel] = true
		cached, ok := ix.files[c.rel]
		if !ok || !cached.modTime.Equal(c.info.ModTime()) || cached.size != c.info.Size() {
			toScan = append(toScan, c)
		}
	}
	ix.mu.RUnlock()

	// Directory listing of Go files, for resolving imports to files.
	pkgFiles := map[string][]string{}
	for _, c := range candidates {
		if strings.HasSuffix(c.rel, ".go") {
			dir := filepath.Dir(c.rel)
			pkgFiles[dir] = append(pkgFiles[dir], c.rel)
		}
	}

	results := make([]*entry, len(toScan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)
	for i, c := range toScan {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := ix.scanFile(c, present, pkgFiles)
			if err != nil {
				return err
			}
			results[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{Files: len(candidates), Scanned: len(toScan)}

	ix.mu.Lock()
	for i, c := range toScan {
		if results[i] != nil {
			ix.files[c.rel] = results[i]
		}
	}
	for rel := range ix.files {
		if !present[rel] {
			delete(ix.files, rel)
			stats.Removed++
		}
	}
	stats.Cached = len(ix.files) - len(toScan)
	if stats.Cached < 0 {
		stats.Cached = 0
	}
	for _, e := range ix.files {
		stats.Refs += len(e.refs)
	}
	ix.mu.Unlock()

	stats.Duration = time.Since(start)
	return stats, nil
}

// candidate is a file found by the walk, pending a cache check.
type candidate struct {
	rel  string
	abs  string
	info fs.FileInfo
}

// collect walks the tree and returns scannable files. Hidden directories,
// vendor trees, and oversized files are skipped here; binary content is
// sniffed later, at read time.
func (ix *Index) collect() ([]candidate, error) {
	var candidates []candidate
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == ix.root {
				return nil
			}
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() || info.Size() > maxFileSize {
			return nil
		}
		rel, err := filepath.Rel(ix.root, path)
		if err != nil {
			return nil
		}
		candidates = append(candidates, candidate{rel: filepath.ToSlash(rel), abs: path, info: info})
		return nil
	})
	if err != nil {
		return nil, output.NewSystemErrorWithCause("scanning source tree", err)
	}
	return candidates, nil
}

// scanFile reads one file and extracts its outgoing references.
func (ix *Index) scanFile(c candidate, present map[string]bool, pkgFiles map[string][]string) (*entry, error) {
	data, err := os.ReadFile(c.abs)
	if err != nil {
		// File vanished mid-scan; drop it silently.
		return &entry{modTime: c.info.ModTime(), size: c.info.Size()}, nil
	}
	e := &entry{modTime: c.info.ModTime(), size: c.info.Size()}
	if isBinary(data) {
		return e, nil
	}

	seen := map[string]bool{}
	addRef := func(target string) {
		target = filepath.ToSlash(filepath.Clean(target))
		if target == c.rel || !present[target] || seen[target] {
			return
		}
		seen[target] = true
		e.refs = append(e.refs, target)
	}

	if strings.HasSuffix(c.rel, ".go") {
		for _, dir := range ix.importedDirs(c.abs, data) {
			for _, f := range pkgFiles[dir] {
				addRef(f)
			}
		}
	}

	for _, m := range relatesToRe.FindAllSubmatch(data, -1) {
		addRef(string(m[1]))
	}

	sort.Strings(e.refs)
	return e, nil
}

// importedDirs parses a Go file's imports and maps in-repo import paths to
// directories relative to the root. Imports outside the module are ignored.
func (ix *Index) importedDirs(path string, data []byte) []string {
	ix.mu.RLock()
	modulePath := ix.modulePath
	ix.mu.RUnlock()
	if modulePath == "" {
		return nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, data, parser.ImportsOnly)
	if err != nil {
		return nil
	}

	var dirs []string
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		if importPath == modulePath {
			dirs = append(dirs, ".")
			continue
		}
		if rest, ok := strings.CutPrefix(importPath, modulePath+"/"); ok {
			dirs = append(dirs, rest)
		}
	}
	return dirs
}

// refreshModulePath reads the root go.mod, if any.
func (ix *Index) refreshModulePath() {
	data, err := os.ReadFile(filepath.Join(ix.root, "go.mod"))
	if err != nil {
		return
	}
	if m := moduleRe.FindSubmatch(data); m != nil {
		ix.mu.Lock()
		ix.modulePath = string(m[1])
		ix.mu.Unlock()
	}
}

// Refs returns the outgoing references recorded for a file.
func (ix *Index) Refs(path string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.files[filepath.ToSlash(path)]
	if !ok {
		return nil
	}
	return append([]string(nil), e.refs...)
}

// Invalidate drops the cache entry for a file so the next Scan re-reads it.
func (ix *Index) Invalidate(path string) {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(ix.root, path)
		if err != nil {
			return
		}
		rel = r
	}
	ix.mu.Lock()
	delete(ix.files, filepath.ToSlash(rel))
	ix.mu.Unlock()
}

// Len returns the number of indexed files.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.files)
}

// isBinary sniffs for a NUL byte in the first chunk of a file.
func isBinary(data []byte) bool {
	chunk := data
	if len(chunk) > 8000 {
		chunk = chunk[:8000]
	}
	return bytes.IndexByte(chunk, 0) >= 0
}
