// Package insights detects architectural problems in a scanned project
// and grades its overall health.
package insights

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/umbra-dev/umbra/internal/scan"
	"github.com/umbra-dev/umbra/internal/tracker"
)

// Severity ranks how serious an insight is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Insight is one detected problem with a recommendation.
type Insight struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	AffectedFiles  []string `json:"affected_files"`
	Recommendation string   `json:"recommendation"`
}

// FileSize pairs a file with its line count for the largest-files list.
type FileSize struct {
	Path  string `json:"path"`
	Lines int    `json:"lines"`
}

// Metrics are basic size and distribution numbers for the project.
type Metrics struct {
	TotalFiles   int            `json:"total_files"`
	TotalLines   int            `json:"total_lines"`
	FilesByType  map[string]int `json:"files_by_type"`
	FilesByDir   map[string]int `json:"files_by_dir"`
	LargestFiles []FileSize     `json:"largest_files"`
}

// Health is the overall score derived from the insights.
type Health struct {
	Score       int    `json:"score"`
	Grade       string `json:"grade"`
	Status      string `json:"status"`
	TotalIssues int    `json:"total_issues"`
	Critical    int    `json:"critical"`
	Warnings    int    `json:"warnings"`
	Info        int    `json:"info"`
}

// Report is the full analysis output.
type Report struct {
	Metrics  Metrics   `json:"metrics"`
	Insights []Insight `json:"insights"`
	Health   Health    `json:"health"`
}

const (
	godFileThreshold     = 300
	godFileCritical      = 500
	maxNestingDepth      = 4
	highCouplingImports  = 10
	largestFilesReported = 5
)

// Analyze runs every detector over the loaded files.
func Analyze(files []scan.File) Report {
	metrics := computeMetrics(files)

	var insights []Insight
	insights = append(insights, detectGodFiles(metrics)...)
	insights = append(insights, detectDeepNesting(files)...)
	insights = append(insights, detectMissingInit(files)...)
	insights = append(insights, detectHighCoupling(files)...)

	return Report{
		Metrics:  metrics,
		Insights: insights,
		Health:   scoreHealth(insights, metrics),
	}
}

func computeMetrics(files []scan.File) Metrics {
	m := Metrics{
		FilesByType: map[string]int{},
		FilesByDir:  map[string]int{},
	}
	sizes := make([]FileSize, 0, len(files))
	for _, f := range files {
		m.TotalFiles++
		m.TotalLines += f.Lines
		m.FilesByType[path.Ext(f.Rel)]++
		m.FilesByDir[path.Dir(f.Rel)]++
		sizes = append(sizes, FileSize{Path: f.Rel, Lines: f.Lines})
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Lines > sizes[j].Lines })
	if len(sizes) > largestFilesReported {
		sizes = sizes[:largestFilesReported]
	}
	m.LargestFiles = sizes
	return m
}

func detectGodFiles(m Metrics) []Insight {
	var out []Insight
	for _, fs := range m.LargestFiles {
		if fs.Lines <= godFileThreshold {
			continue
		}
		sev := SeverityWarning
		if fs.Lines >= godFileCritical {
			sev = SeverityCritical
		}
		out = append(out, Insight{
			Title:          fmt.Sprintf("Large file detected: %s", fs.Path),
			Description:    fmt.Sprintf("This file has %d lines, which may indicate it has too many responsibilities.", fs.Lines),
			Severity:       sev,
			AffectedFiles:  []string{fs.Path},
			Recommendation: "Consider splitting this file into smaller, focused modules.",
		})
	}
	return out
}

// detectDeepNesting reports at most one deeply nested file; one example
// is enough to flag the structural problem.
func detectDeepNesting(files []scan.File) []Insight {
	for _, f := range files {
		depth := strings.Count(f.Rel, "/")
		if depth > maxNestingDepth {
			return []Insight{{
				Title:          fmt.Sprintf("Deep nesting: %s", f.Rel),
				Description:    fmt.Sprintf("This file is %d directories deep, which can make navigation difficult.", depth),
				Severity:       SeverityInfo,
				AffectedFiles:  []string{f.Rel},
				Recommendation: "Consider flattening your directory structure.",
			}}
		}
	}
	return nil
}

func detectMissingInit(files []scan.File) []Insight {
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

	var out []Insight
	for _, d := range dirs {
		out = append(out, Insight{
			Title:          fmt.Sprintf("Missing __init__.py in %s", d),
			Description:    "This directory contains Python files but no __init__.py, so it's not a proper package.",
			Severity:       SeverityInfo,
			AffectedFiles:  []string{d},
			Recommendation: "Add an __init__.py file to make this a proper Python package.",
		})
	}
	return out
}

// stdlibPrefixes approximates "not an internal module" for coupling
// detection. Precision does not matter much here, only the order of
// magnitude of internal imports.
var stdlibPrefixes = []string{"os", "sys", "json", "typing", "pathlib", "dataclass", "enum", "re", "time", "datetime", "collections"}

func detectHighCoupling(files []scan.File) []Insight {
	var out []Insight
	for _, f := range files {
		if !strings.HasSuffix(f.Rel, ".py") {
			continue
		}
		internal := 0
		for _, imp := range tracker.ExtractImports(f.Rel, f.Content) {
			if !isStdlib(imp) {
				internal++
			}
		}
		if internal > highCouplingImports {
			out = append(out, Insight{
				Title:          fmt.Sprintf("High coupling: %s", f.Rel),
				Description:    fmt.Sprintf("This file imports %d modules, indicating high coupling.", internal),
				Severity:       SeverityWarning,
				AffectedFiles:  []string{f.Rel},
				Recommendation: "Consider reducing dependencies or using dependency injection.",
			})
		}
	}
	return out
}

func isStdlib(module string) bool {
	for _, p := range stdlibPrefixes {
		if strings.HasPrefix(module, p) {
			return true
		}
	}
	return false
}

func scoreHealth(insights []Insight, m Metrics) Health {
	h := Health{Score: 100, TotalIssues: len(insights)}
	for _, in := range insights {
		switch in.Severity {
		case SeverityCritical:
			h.Score -= 15
			h.Critical++
		case SeverityWarning:
			h.Score -= 8
			h.Warnings++
		default:
			h.Score -= 2
			h.Info++
		}
	}
	if m.TotalFiles > 0 && float64(m.TotalLines)/float64(m.TotalFiles) < 200 {
		h.Score += 5
	}
	if h.Score < 0 {
		h.Score = 0
	}
	if h.Score > 100 {
		h.Score = 100
	}

	switch {
	case h.Score >= 90:
		h.Grade, h.Status = "A", "Excellent"
	case h.Score >= 75:
		h.Grade, h.Status = "B", "Good"
	case h.Score >= 60:
		h.Grade, h.Status = "C", "Needs Improvement"
	case h.Score >= 40:
		h.Grade, h.Status = "D", "Poor"
	default:
		h.Grade, h.Status = "F", "Critical"
	}
	return h
}
