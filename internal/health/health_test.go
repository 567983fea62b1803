package health

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-dev/umbra/internal/scan"
)

func pyFile(rel, content string) scan.File {
	return scan.File{Rel: rel, Content: content, Lines: countLines(content)}
}

func issuesOfType(issues []Issue, typ IssueType) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Type == typ {
			out = append(out, is)
		}
	}
	return out
}

func TestSecretDetector(t *testing.T) {
	f := pyFile("config.py", strings.Join([]string{
		"import os",
		`api_key = "sk_live_0123456789abcdef"`,
		`password = os.getenv("DB_PASSWORD")`,
		`# secret = "commented_out_secret"`,
	}, "\n"))

	issues := secretDetector{}.Check([]scan.File{f})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueSecret, issues[0].Type)
	assert.Equal(t, SeverityCritical, issues[0].Severity)
	assert.Equal(t, 2, issues[0].Line)
	assert.Contains(t, issues[0].Message, "API key")
}

func TestGodFileDetector(t *testing.T) {
	files := []scan.File{
		{Rel: "ok.py", Lines: 400},
		{Rel: "warn.py", Lines: 600},
		{Rel: "err.py", Lines: 900},
	}
	issues := godFileDetector{}.Check(files)
	require.Len(t, issues, 2)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, "warn.py", issues[0].File)
	assert.Equal(t, SeverityError, issues[1].Severity)
}

func TestBrokenImportDetector(t *testing.T) {
	files := []scan.File{
		pyFile("myproj/auth.py", "import os"),
		pyFile("myproj/api.py", "from myproj.ghost import thing\nfrom myproj.auth import login"),
	}
	issues := brokenImportDetector{projectName: "myproj"}.Check(files)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueBrokenImport, issues[0].Type)
	assert.Contains(t, issues[0].Message, "myproj.ghost")
}

func TestCircularDetector(t *testing.T) {
	files := []scan.File{
		pyFile("a.py", "import b"),
		pyFile("b.py", "import a"),
		pyFile("c.py", "import a"),
	}
	issues := circularDetector{}.Check(files)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Contains(t, issues[0].Message, "a -> b -> a")
}

func TestCircularDetectorCapsCycles(t *testing.T) {
	var files []scan.File
	pairs := [][2]string{{"a", "b"}, {"c", "d"}, {"e", "f"}, {"g", "h"}}
	for _, p := range pairs {
		files = append(files,
			pyFile(p[0]+".py", "import "+p[1]),
			pyFile(p[1]+".py", "import "+p[0]),
		)
	}
	issues := circularDetector{}.Check(files)
	assert.Len(t, issues, maxCycles)
}

func TestOrphanDetector(t *testing.T) {
	files := []scan.File{
		pyFile("main.py", "import auth"),
		pyFile("auth.py", "import os"),
		pyFile("unused.py", "x = 1"),
		pyFile("test_auth.py", "import auth"),
	}
	issues := orphanDetector{}.Check(files)
	require.Len(t, issues, 1)
	assert.Equal(t, "unused.py", issues[0].File)
	assert.Equal(t, SeverityInfo, issues[0].Severity)
}

func TestMissingInitDetector(t *testing.T) {
	files := []scan.File{
		pyFile("pkg/mod.py", ""),
		pyFile("good/__init__.py", ""),
		pyFile("good/mod.py", ""),
		pyFile("root.py", ""),
	}
	issues := missingInitDetector{}.Check(files)
	require.Len(t, issues, 1)
	assert.Equal(t, "pkg", issues[0].File)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
}

func TestMonitorScanScoring(t *testing.T) {
	m := NewMonitor("proj")
	// One god-file warning (-3); main.py is an entry point, big.py is
	// imported by it, so no orphans.
	files := []scan.File{
		pyFile("main.py", "import big"),
		{Rel: "big.py", Content: "import os", Lines: 600},
	}
	r := m.Scan(files)

	assert.Equal(t, 97, r.Score)
	assert.Equal(t, "A", r.Grade)
	assert.Equal(t, 2, r.Metrics["total_files"])
	assert.Equal(t, 1, r.Metrics["total_issues"])
	assert.Equal(t, 1, r.Metrics["warning_issues"])
}

func TestGradeFor(t *testing.T) {
	assert.Equal(t, "A", gradeFor(90))
	assert.Equal(t, "B", gradeFor(85))
	assert.Equal(t, "C", gradeFor(72))
	assert.Equal(t, "D", gradeFor(60))
	assert.Equal(t, "F", gradeFor(59))
}

func TestCheckFile(t *testing.T) {
	issues := CheckFile("settings.py", `token = "abcdefghijklmnopqrstuvwxyz"`)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueSecret, issues[0].Type)
}
