package tracker

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Import extraction is regex-based because the watched trees are polyglot
// Python/JS/TS; a real parser per language buys little for impact
// analysis, which only needs module-name references.
var (
	pythonImportRegex = regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)
	jsImportRegex     = regexp.MustCompile(`(?m)(?:import\s+(?:[\w{},*\s]+\s+from\s+)?|require\()\s*['"]([^'"]+)['"]`)
)

// DependencyGraph tracks which files reference which modules so that a
// change to one file can be mapped to its dependents.
type DependencyGraph struct {
	mu sync.RWMutex

	// imports maps file path -> set of module references it imports.
	imports map[string]map[string]bool
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{imports: make(map[string]map[string]bool)}
}

// AddFile (re)parses a file's imports into the graph.
func (g *DependencyGraph) AddFile(path, content string) {
	refs := ExtractImports(path, content)

	g.mu.Lock()
	defer g.mu.Unlock()
	set := make(map[string]bool, len(refs))
	for _, r := range refs {
		set[r] = true
	}
	g.imports[path] = set
}

// RemoveFile drops a file from the graph.
func (g *DependencyGraph) RemoveFile(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.imports, path)
}

// Imports returns the module references extracted from a file.
func (g *DependencyGraph) Imports(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []string
	for r := range g.imports[path] {
		out = append(out, r)
	}
	return out
}

// Dependents returns every file that references path, directly or
// transitively. A file references path when one of its import tokens
// resolves to path's module stem.
func (g *DependencyGraph) Dependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{}
	queue := []string{path}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		stem := moduleStem(current)

		for file, refs := range g.imports {
			if file == current || seen[file] {
				continue
			}
			for ref := range refs {
				if refMatchesStem(ref, stem) {
					seen[file] = true
					queue = append(queue, file)
					break
				}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	return out
}

// ExtractImports pulls module references out of Python or JS/TS source.
func ExtractImports(path, content string) []string {
	var refs []string
	seen := map[string]bool{}
	add := func(r string) {
		if r != "" && !seen[r] {
			seen[r] = true
			refs = append(refs, r)
		}
	}

	if strings.HasSuffix(path, ".py") {
		for _, m := range pythonImportRegex.FindAllStringSubmatch(content, -1) {
			if m[1] != "" {
				add(m[1])
			} else {
				add(m[2])
			}
		}
		return refs
	}

	for _, m := range jsImportRegex.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	return refs
}

// moduleStem returns the name other files would use to import this file:
// the basename without extension, with "index" collapsing to the parent
// directory name (JS convention).
func moduleStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "index" || stem == "__init__" {
		return filepath.Base(filepath.Dir(path))
	}
	return stem
}

// refMatchesStem reports whether an import token refers to a module stem.
// Tokens may be dotted Python paths ("pkg.auth") or relative JS paths
// ("./auth", "../lib/auth").
func refMatchesStem(ref, stem string) bool {
	ref = strings.TrimSuffix(ref, ".py")
	ref = strings.TrimSuffix(ref, ".js")
	ref = strings.TrimSuffix(ref, ".ts")

	last := ref
	if i := strings.LastIndexAny(ref, "./"); i >= 0 && i+1 < len(ref) {
		last = ref[i+1:]
	}
	return last == stem
}
