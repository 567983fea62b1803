// Package health scans a project for structural problems: broken
// imports, circular dependencies, orphan files, oversized files, missing
// package markers and hardcoded secrets.
package health

import (
	"time"

	"github.com/umbra-dev/umbra/internal/scan"
)

// Severity level of a health issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// IssueType identifies what kind of problem was found.
type IssueType string

const (
	IssueBrokenImport IssueType = "broken_import"
	IssueCircularDep  IssueType = "circular_dependency"
	IssueOrphanFile   IssueType = "orphan_file"
	IssueGodFile      IssueType = "god_file"
	IssueMissingInit  IssueType = "missing_init"
	IssueSecret       IssueType = "hardcoded_secret"
)

// Issue is one detected problem.
type Issue struct {
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	File       string    `json:"file"`
	Line       int       `json:"line,omitempty"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`
	DetectedAt time.Time `json:"detected_at"`
}

// Report is the result of a full health scan.
type Report struct {
	Score     int            `json:"score"`
	Grade     string         `json:"grade"`
	Issues    []Issue        `json:"issues"`
	Metrics   map[string]int `json:"metrics"`
	ScannedAt time.Time      `json:"scanned_at"`
}

// Detector finds one class of issue across the scanned files.
type Detector interface {
	Name() string
	Check(files []scan.File) []Issue
}

// Monitor runs a set of detectors over a project.
type Monitor struct {
	projectName string
	detectors   []Detector
}

// NewMonitor creates a monitor with the default detector set.
// projectName is the root directory's base name, used to recognize
// absolute imports into the project itself.
func NewMonitor(projectName string) *Monitor {
	m := &Monitor{projectName: projectName}
	m.Register(secretDetector{})
	m.Register(godFileDetector{})
	m.Register(brokenImportDetector{projectName: projectName})
	m.Register(circularDetector{})
	m.Register(orphanDetector{})
	m.Register(missingInitDetector{})
	return m
}

// Register adds a detector to the scan set.
func (m *Monitor) Register(d Detector) {
	m.detectors = append(m.detectors, d)
}

// Scan runs every detector and scores the result.
func (m *Monitor) Scan(files []scan.File) Report {
	var issues []Issue
	for _, d := range m.detectors {
		issues = append(issues, d.Check(files)...)
	}

	score := 100
	counts := map[Severity]int{}
	for _, is := range issues {
		counts[is.Severity]++
		switch is.Severity {
		case SeverityCritical:
			score -= 15
		case SeverityError:
			score -= 8
		case SeverityWarning:
			score -= 3
		default:
			score -= 1
		}
	}
	if score < 0 {
		score = 0
	}

	return Report{
		Score:  score,
		Grade:  gradeFor(score),
		Issues: issues,
		Metrics: map[string]int{
			"total_files":     len(files),
			"total_issues":    len(issues),
			"critical_issues": counts[SeverityCritical],
			"error_issues":    counts[SeverityError],
			"warning_issues":  counts[SeverityWarning],
		},
		ScannedAt: time.Now(),
	}
}

// CheckFile runs the per-file detectors against a single file, for
// real-time feedback while watching.
func CheckFile(rel, content string) []Issue {
	f := []scan.File{{Rel: rel, Content: content, Lines: countLines(content)}}
	var issues []Issue
	issues = append(issues, secretDetector{}.Check(f)...)
	issues = append(issues, godFileDetector{}.Check(f)...)
	return issues
}

func gradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
