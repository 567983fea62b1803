package insights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-dev/umbra/internal/scan"
)

func file(rel string, lines int) scan.File {
	return scan.File{
		Rel:     rel,
		Content: strings.Repeat("x = 1\n", lines),
		Lines:   lines,
	}
}

func TestMetrics(t *testing.T) {
	files := []scan.File{
		file("main.py", 100),
		file("lib/util.py", 50),
		file("web/app.js", 30),
	}
	r := Analyze(files)

	assert.Equal(t, 3, r.Metrics.TotalFiles)
	assert.Equal(t, 180, r.Metrics.TotalLines)
	assert.Equal(t, 2, r.Metrics.FilesByType[".py"])
	assert.Equal(t, 1, r.Metrics.FilesByType[".js"])
	assert.Equal(t, 1, r.Metrics.FilesByDir["lib"])
	require.NotEmpty(t, r.Metrics.LargestFiles)
	assert.Equal(t, "main.py", r.Metrics.LargestFiles[0].Path)
}

func TestGodFileSeverity(t *testing.T) {
	r := Analyze([]scan.File{file("big.py", 400), file("huge.py", 600)})

	var bySeverity []Severity
	for _, in := range r.Insights {
		if strings.HasPrefix(in.Title, "Large file") {
			bySeverity = append(bySeverity, in.Severity)
		}
	}
	assert.ElementsMatch(t, []Severity{SeverityCritical, SeverityWarning}, bySeverity)
}

func TestSmallFilesNoGodInsight(t *testing.T) {
	r := Analyze([]scan.File{file("small.py", 100)})
	for _, in := range r.Insights {
		assert.NotContains(t, in.Title, "Large file")
	}
}

func TestDeepNestingReportedOnce(t *testing.T) {
	files := []scan.File{
		file("a/b/c/d/e/deep.py", 10),
		file("a/b/c/d/e/f/deeper.py", 10),
	}
	r := Analyze(files)

	count := 0
	for _, in := range r.Insights {
		if strings.HasPrefix(in.Title, "Deep nesting") {
			count++
			assert.Equal(t, SeverityInfo, in.Severity)
		}
	}
	assert.Equal(t, 1, count)
}

func TestMissingInit(t *testing.T) {
	files := []scan.File{
		file("pkg/mod.py", 10),
		{Rel: "ok/__init__.py", Content: "", Lines: 0},
		file("ok/mod.py", 10),
		file("root.py", 10),
	}
	r := Analyze(files)

	var affected []string
	for _, in := range r.Insights {
		if strings.HasPrefix(in.Title, "Missing __init__.py") {
			affected = append(affected, in.AffectedFiles...)
		}
	}
	assert.Equal(t, []string{"pkg"}, affected)
}

func TestHighCoupling(t *testing.T) {
	var b strings.Builder
	for _, m := range []string{"auth", "db", "api", "models", "views", "forms", "tasks", "signals", "admin", "urls", "cache"} {
		b.WriteString("import " + m + "\n")
	}
	r := Analyze([]scan.File{{Rel: "hub.py", Content: b.String(), Lines: 11}})

	found := false
	for _, in := range r.Insights {
		if strings.HasPrefix(in.Title, "High coupling") {
			found = true
			assert.Equal(t, SeverityWarning, in.Severity)
		}
	}
	assert.True(t, found)
}

func TestHealthScoring(t *testing.T) {
	// One critical god file and small average size bonus.
	r := Analyze([]scan.File{file("huge.py", 600)})
	// 100 - 15 (critical) = 85, no bonus (avg 600).
	assert.Equal(t, 85, r.Health.Score)
	assert.Equal(t, "B", r.Health.Grade)
	assert.Equal(t, 1, r.Health.Critical)
}

func TestHealthyProjectGetsBonus(t *testing.T) {
	r := Analyze([]scan.File{file("a.py", 50), file("b.py", 50)})
	assert.Equal(t, 100, r.Health.Score)
	assert.Equal(t, "A", r.Health.Grade)
	assert.Equal(t, "Excellent", r.Health.Status)
}

func TestGradeBoundaries(t *testing.T) {
	repeat := func(sev Severity, n int) []Insight {
		out := make([]Insight, n)
		for i := range out {
			out[i] = Insight{Severity: sev}
		}
		return out
	}
	m := Metrics{TotalFiles: 1, TotalLines: 500}

	tests := []struct {
		insights []Insight
		score    int
		grade    string
	}{
		{nil, 100, "A"},
		{repeat(SeverityWarning, 2), 84, "B"},          // 100-16
		{repeat(SeverityWarning, 5), 60, "C"},          // 100-40
		{repeat(SeverityCritical, 4), 40, "D"},         // 100-60
		{repeat(SeverityCritical, 5), 25, "F"},         // 100-75
		{repeat(SeverityCritical, 10), 0, "F"},         // clamped
	}
	for _, tt := range tests {
		h := scoreHealth(tt.insights, m)
		assert.Equal(t, tt.score, h.Score)
		assert.Equal(t, tt.grade, h.Grade)
	}
}
