package docs

import (
	"regexp"
	"strings"

	"github.com/umbra-dev/umbra/internal/tracker"
)

// FuncInfo describes one top-level function.
type FuncInfo struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
	Doc  string   `json:"doc,omitempty"`
}

// ClassInfo describes one class and its methods.
type ClassInfo struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods"`
	Doc     string   `json:"doc,omitempty"`
}

// ModuleInfo is the structural summary of a source file.
type ModuleInfo struct {
	Functions []FuncInfo  `json:"functions"`
	Classes   []ClassInfo `json:"classes"`
	Imports   []string    `json:"imports"`
	Constants []string    `json:"constants"`
}

var (
	pyDefRegex      = regexp.MustCompile(`^def\s+(\w+)\s*\(([^)]*)`)
	pyMethodRegex   = regexp.MustCompile(`^\s+def\s+(\w+)\s*\(`)
	pyClassRegex    = regexp.MustCompile(`^class\s+(\w+)`)
	pyConstantRegex = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)\s*=`)

	jsFuncRegex  = regexp.MustCompile(`^export\s+(?:default\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)`)
	jsClassRegex = regexp.MustCompile(`^export\s+(?:default\s+)?class\s+(\w+)`)
	jsConstRegex = regexp.MustCompile(`^export\s+const\s+([A-Z][A-Z0-9_]*)\s*=`)
)

// ExtractModuleInfo pulls functions, classes, imports and constants out
// of a source file without a full parser. Coverage is intentionally
// shallow: enough structure for the API reference, nothing more.
func ExtractModuleInfo(rel, code string) ModuleInfo {
	info := ModuleInfo{Imports: tracker.ExtractImports(rel, code)}

	lines := strings.Split(code, "\n")
	if strings.HasSuffix(rel, ".py") {
		extractPython(lines, &info)
	} else {
		extractJS(lines, &info)
	}
	return info
}

func extractPython(lines []string, info *ModuleInfo) {
	for i, line := range lines {
		if m := pyDefRegex.FindStringSubmatch(line); m != nil {
			info.Functions = append(info.Functions, FuncInfo{
				Name: m[1],
				Args: splitArgs(m[2]),
				Doc:  docstringAfter(lines, i),
			})
			continue
		}
		if m := pyClassRegex.FindStringSubmatch(line); m != nil {
			cls := ClassInfo{Name: m[1], Doc: docstringAfter(lines, i)}
			// Methods are the indented defs until the next top-level
			// statement.
			for j := i + 1; j < len(lines); j++ {
				next := lines[j]
				if strings.TrimSpace(next) != "" && !strings.HasPrefix(next, " ") && !strings.HasPrefix(next, "\t") {
					break
				}
				if mm := pyMethodRegex.FindStringSubmatch(next); mm != nil {
					cls.Methods = append(cls.Methods, mm[1])
				}
			}
			info.Classes = append(info.Classes, cls)
			continue
		}
		if m := pyConstantRegex.FindStringSubmatch(line); m != nil {
			info.Constants = append(info.Constants, m[1])
		}
	}
}

func extractJS(lines []string, info *ModuleInfo) {
	for _, line := range lines {
		if m := jsFuncRegex.FindStringSubmatch(line); m != nil {
			info.Functions = append(info.Functions, FuncInfo{Name: m[1], Args: splitArgs(m[2])})
			continue
		}
		if m := jsClassRegex.FindStringSubmatch(line); m != nil {
			info.Classes = append(info.Classes, ClassInfo{Name: m[1]})
			continue
		}
		if m := jsConstRegex.FindStringSubmatch(line); m != nil {
			info.Constants = append(info.Constants, m[1])
		}
	}
}

func splitArgs(raw string) []string {
	var args []string
	for _, a := range strings.Split(raw, ",") {
		a = strings.TrimSpace(a)
		// Drop type annotations and defaults, keep the parameter name.
		if i := strings.IndexAny(a, ":="); i >= 0 {
			a = strings.TrimSpace(a[:i])
		}
		if a != "" && a != "self" && a != "cls" {
			args = append(args, a)
		}
	}
	return args
}

// docstringAfter returns the first line of a docstring that opens right
// after a def or class statement.
func docstringAfter(lines []string, defLine int) string {
	for j := defLine + 1; j < len(lines) && j <= defLine+2; j++ {
		t := strings.TrimSpace(lines[j])
		if t == "" {
			continue
		}
		for _, q := range []string{`"""`, "'''"} {
			if strings.HasPrefix(t, q) {
				t = strings.TrimPrefix(t, q)
				if i := strings.Index(t, q); i >= 0 {
					t = t[:i]
				}
				return strings.TrimSpace(t)
			}
		}
		return ""
	}
	return ""
}
