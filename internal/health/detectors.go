package health

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/umbra-dev/umbra/internal/scan"
	"github.com/umbra-dev/umbra/internal/tracker"
)

const (
	godFileLines = 500
	godFileError = 800
	maxCycles    = 3
)

var knownModules = map[string]bool{}

func init() {
	for _, m := range []string{
		// Python stdlib.
		"os", "sys", "re", "json", "datetime", "time", "pathlib",
		"typing", "collections", "itertools", "functools", "ast",
		"dataclasses", "enum", "abc", "copy", "io", "logging",
		"threading", "multiprocessing", "subprocess", "socket",
		"http", "urllib", "email", "html", "xml", "sqlite3",
		"hashlib", "hmac", "secrets", "random", "math", "statistics",
		"unittest", "argparse", "configparser", "csv", "pickle",
		"contextlib", "traceback", "warnings", "inspect",
		"importlib", "types", "textwrap", "difflib", "tempfile",
		"shutil", "glob", "fnmatch", "asyncio",
		// Common third party.
		"click", "rich", "dotenv", "requests", "flask", "fastapi",
		"django", "sqlalchemy", "pydantic", "pytest", "numpy",
		"pandas", "google", "langchain", "langgraph", "openai",
		"anthropic", "watchdog", "uvicorn", "starlette", "httpx",
		"aiohttp", "react",
	} {
		knownModules[m] = true
	}
}

func isKnownModule(module string) bool {
	root := module
	if i := strings.IndexByte(root, '.'); i >= 0 {
		root = root[:i]
	}
	return knownModules[root]
}

type secretDetector struct{}

func (secretDetector) Name() string { return "hardcoded-secrets" }

var secretChecks = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)api[_-]?key\s*=\s*["'][^"']{10,}["']`), "API key"},
	{regexp.MustCompile(`(?i)password\s*=\s*["'][^"']+["']`), "Password"},
	{regexp.MustCompile(`(?i)secret\s*=\s*["'][^"']{10,}["']`), "Secret"},
	{regexp.MustCompile(`(?i)token\s*=\s*["'][^"']{20,}["']`), "Token"},
	{regexp.MustCompile(`(?i)aws[_-]?access[_-]?key`), "AWS Access Key"},
	{regexp.MustCompile(`(?i)private[_-]?key\s*=`), "Private Key"},
}

func (secretDetector) Check(files []scan.File) []Issue {
	var issues []Issue
	for _, f := range files {
		for lineNum, line := range strings.Split(f.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
				continue
			}
			// Reading a secret from the environment is the fix, not
			// the problem.
			if strings.Contains(line, "os.getenv") || strings.Contains(line, "os.environ") ||
				strings.Contains(line, ".env") || strings.Contains(line, "process.env") {
				continue
			}
			for _, sc := range secretChecks {
				if sc.re.MatchString(line) {
					issues = append(issues, Issue{
						Type:       IssueSecret,
						Severity:   SeverityCritical,
						File:       f.Rel,
						Line:       lineNum + 1,
						Message:    fmt.Sprintf("Possible hardcoded %s detected", sc.label),
						Suggestion: fmt.Sprintf("Move %s to environment variables", sc.label),
						DetectedAt: time.Now(),
					})
					break
				}
			}
		}
	}
	return issues
}

type godFileDetector struct{}

func (godFileDetector) Name() string { return "god-files" }

func (godFileDetector) Check(files []scan.File) []Issue {
	var issues []Issue
	for _, f := range files {
		if f.Lines <= godFileLines {
			continue
		}
		sev := SeverityWarning
		if f.Lines >= godFileError {
			sev = SeverityError
		}
		issues = append(issues, Issue{
			Type:       IssueGodFile,
			Severity:   sev,
			File:       f.Rel,
			Message:    fmt.Sprintf("File has %d lines (threshold: %d)", f.Lines, godFileLines),
			Suggestion: "Consider splitting into smaller modules",
			DetectedAt: time.Now(),
		})
	}
	return issues
}

type brokenImportDetector struct {
	projectName string
}

func (brokenImportDetector) Name() string { return "broken-imports" }

// Check flags absolute imports into the project whose target module does
// not exist. Only project-prefixed imports are checked; anything else
// could be an installed dependency.
func (d brokenImportDetector) Check(files []scan.File) []Issue {
	stems := localStems(files)

	var issues []Issue
	for _, f := range files {
		if !strings.HasSuffix(f.Rel, ".py") {
			continue
		}
		for _, imp := range tracker.ExtractImports(f.Rel, f.Content) {
			if isKnownModule(imp) || !strings.HasPrefix(imp, d.projectName) {
				continue
			}
			parts := strings.Split(imp, ".")
			if len(parts) > 1 && !stems[parts[1]] {
				issues = append(issues, Issue{
					Type:       IssueBrokenImport,
					Severity:   SeverityError,
					File:       f.Rel,
					Message:    fmt.Sprintf("Import '%s' may reference missing module", imp),
					Suggestion: "Check if the imported module exists",
					DetectedAt: time.Now(),
				})
			}
		}
	}
	return issues
}

type circularDetector struct{}

func (circularDetector) Name() string { return "circular-dependencies" }

func (circularDetector) Check(files []scan.File) []Issue {
	stems := localStems(files)

	// Edges go from a file's stem to the local stems it imports.
	edges := map[string][]string{}
	for _, f := range files {
		if !strings.HasSuffix(f.Rel, ".py") {
			continue
		}
		from := fileStem(f.Rel)
		for _, imp := range tracker.ExtractImports(f.Rel, f.Content) {
			segs := strings.Split(imp, ".")
			to := segs[len(segs)-1]
			if to != from && stems[to] {
				edges[from] = append(edges[from], to)
			}
		}
	}

	nodes := make([]string, 0, len(edges))
	for n := range edges {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	visited := map[string]bool{}
	var cycles [][]string

	var walk func(node string, stack []string, onStack map[string]bool)
	walk = func(node string, stack []string, onStack map[string]bool) {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)
		for _, next := range edges[node] {
			if onStack[next] {
				for i, s := range stack {
					if s == next {
						cycle := append([]string(nil), stack[i:]...)
						cycles = append(cycles, cycle)
						break
					}
				}
				continue
			}
			if !visited[next] {
				walk(next, stack, onStack)
			}
		}
		delete(onStack, node)
	}

	for _, n := range nodes {
		if !visited[n] {
			walk(n, nil, map[string]bool{})
		}
	}

	var issues []Issue
	for i, cycle := range cycles {
		if i >= maxCycles {
			break
		}
		issues = append(issues, Issue{
			Type:       IssueCircularDep,
			Severity:   SeverityWarning,
			File:       cycle[0] + ".py",
			Message:    fmt.Sprintf("Circular dependency: %s", strings.Join(append(cycle, cycle[0]), " -> ")),
			Suggestion: "Refactor to break the circular dependency",
			DetectedAt: time.Now(),
		})
	}
	return issues
}

// entryPoints are module names that are expected to have no importers.
var entryPoints = map[string]bool{
	"main": true, "__main__": true, "cli": true, "app": true,
	"wsgi": true, "asgi": true, "manage": true,
}

type orphanDetector struct{}

func (orphanDetector) Name() string { return "orphan-files" }

func (orphanDetector) Check(files []scan.File) []Issue {
	imported := map[string]bool{}
	for _, f := range files {
		if !strings.HasSuffix(f.Rel, ".py") {
			continue
		}
		for _, imp := range tracker.ExtractImports(f.Rel, f.Content) {
			for _, seg := range strings.Split(imp, ".") {
				imported[seg] = true
			}
		}
	}

	var issues []Issue
	for _, f := range files {
		if !strings.HasSuffix(f.Rel, ".py") {
			continue
		}
		stem := fileStem(f.Rel)
		if entryPoints[stem] || stem == "__init__" {
			continue
		}
		if strings.Contains(strings.ToLower(f.Rel), "test") {
			continue
		}
		if !imported[stem] {
			issues = append(issues, Issue{
				Type:       IssueOrphanFile,
				Severity:   SeverityInfo,
				File:       f.Rel,
				Message:    fmt.Sprintf("File '%s.py' is never imported", stem),
				Suggestion: "Remove if unused, or add to exports",
				DetectedAt: time.Now(),
			})
		}
	}
	return issues
}

type missingInitDetector struct{}

func (missingInitDetector) Name() string { return "missing-init" }

func (missingInitDetector) Check(files []scan.File) []Issue {
	pyDirs := map[string]bool{}
	hasInit := map[string]bool{}
	for _, f := range files {
		if !strings.HasSuffix(f.Rel, ".py") {
			continue
		}
		dir := path.Dir(f.Rel)
		pyDirs[dir] = true
		if path.Base(f.Rel) == "__init__.py" {
			hasInit[dir] = true
		}
	}

	dirs := make([]string, 0, len(pyDirs))
	for d := range pyDirs {
		if d != "." && !hasInit[d] {
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)

	var issues []Issue
	for _, d := range dirs {
		issues = append(issues, Issue{
			Type:       IssueMissingInit,
			Severity:   SeverityWarning,
			File:       d,
			Message:    "Package missing __init__.py",
			Suggestion: "Add __init__.py for proper package structure",
			DetectedAt: time.Now(),
		})
	}
	return issues
}

func localStems(files []scan.File) map[string]bool {
	stems := map[string]bool{}
	for _, f := range files {
		if !strings.HasSuffix(f.Rel, ".py") {
			continue
		}
		if s := fileStem(f.Rel); s != "__init__" {
			stems[s] = true
		}
		// Parent directories are importable packages.
		for dir := path.Dir(f.Rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
			stems[path.Base(dir)] = true
		}
	}
	return stems
}

func fileStem(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}

func countLines(content string) int {
	return len(strings.Split(content, "\n"))
}
