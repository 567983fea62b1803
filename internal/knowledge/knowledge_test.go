package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-dev/umbra/internal/docs"
	"github.com/umbra-dev/umbra/internal/mermaid"
)

func archPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "output", "LIVE_ARCHITECTURE.md")
}

func TestWriteAndLoadArchitecture(t *testing.T) {
	path := archPath(t)
	require.NoError(t, WriteArchitecture(path, "**Type:** CLI", mermaid.SeedDiagram, 12))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# Live Architecture")
	assert.Contains(t, content, "**Type:** CLI")
	assert.Contains(t, content, "Scanned: 12 files")
	assert.Contains(t, content, "| Time | File | Change |")

	assert.Equal(t, mermaid.SeedDiagram, LoadDiagram(path))
}

func TestLoadDiagramMissingFileYieldsSeed(t *testing.T) {
	assert.Equal(t, mermaid.SeedDiagram, LoadDiagram(filepath.Join(t.TempDir(), "nope.md")))
}

func TestSaveDiagramReplacesAndLogsChange(t *testing.T) {
	path := archPath(t)
	require.NoError(t, WriteSeedArchitecture(path))

	updated := "graph LR\n    API[API] --> DB[(Database)]"
	require.NoError(t, SaveDiagram(path, updated, "db.py", "Added database connection"))

	assert.Equal(t, updated, LoadDiagram(path))

	data, _ := os.ReadFile(path)
	content := string(data)
	assert.Contains(t, content, "| db.py | Added database connection |")
	assert.NotContains(t, content, "Last updated: Starting...")
}

func TestSaveDiagramCreatesMissingFile(t *testing.T) {
	path := archPath(t)
	require.NoError(t, SaveDiagram(path, "graph LR\n    A[App]", "main.py", "New entry point"))
	assert.Equal(t, "graph LR\n    A[App]", LoadDiagram(path))
}

func TestNewestChangeRowFirst(t *testing.T) {
	path := archPath(t)
	require.NoError(t, WriteSeedArchitecture(path))
	require.NoError(t, RecordChange(path, "first.py", "one"))
	require.NoError(t, RecordChange(path, "second.py", "two"))

	data, _ := os.ReadFile(path)
	content := string(data)
	assert.Less(t, strings.Index(content, "second.py"), strings.Index(content, "first.py"))
}

func TestChangeTableCapped(t *testing.T) {
	path := archPath(t)
	require.NoError(t, WriteSeedArchitecture(path))

	for i := 0; i < maxChangeRows+10; i++ {
		require.NoError(t, RecordChange(path, fmt.Sprintf("file%03d.py", i), "edit"))
	}

	data, _ := os.ReadFile(path)
	content := string(data)

	rows := 0
	inTable := false
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "|------"):
			inTable = true
		case inTable && strings.HasPrefix(line, "|"):
			rows++
		case inTable:
			inTable = false
		}
	}
	assert.Equal(t, maxChangeRows, rows)

	// Newest rows survive, the oldest are dropped.
	assert.Contains(t, content, fmt.Sprintf("file%03d.py", maxChangeRows+9))
	assert.NotContains(t, content, "file000.py")
}

func TestRemoveFromDiagram(t *testing.T) {
	path := archPath(t)
	require.NoError(t, WriteSeedArchitecture(path))
	diagram := "graph LR\n    Auth[Auth Service] --> DB[(Database)]\n    API[API] --> DB"
	require.NoError(t, SaveDiagram(path, diagram, "auth.py", "auth added"))

	require.NoError(t, RemoveFromDiagram(path, "auth.py"))
	got := LoadDiagram(path)
	assert.NotContains(t, got, "Auth")
	assert.Contains(t, got, "API[API]")
}

func TestGenerateAndLoadSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "UMBRA_KNOWLEDGE.md")
	d := Data{
		ProjectName:  "demo",
		Diagram:      mermaid.SeedDiagram,
		QuickContext: "A CLI tool that watches code.",
		ModuleDocs:   "### auth\n\n**Purpose**: Login handling.",
		APIReference: "#### `auth`\n- `login(user)`",
		Security: []docs.SecurityReport{
			{File: "cfg.py", RiskLevel: "high", Issues: []docs.SecurityIssue{
				{Type: "hardcoded_secret", Line: 3, Description: "api key in source", Recommendation: "move to env"},
			}},
		},
		Metrics: Metrics{TotalFiles: 4, TotalLines: 500, EntryPoints: 1, ExternalAPIs: 2},
		RecentChanges: []RecentChange{
			{Timestamp: time.Now(), Path: "initial", Type: "scan", Description: "Full project scan"},
		},
		Files: []string{"main.py", "auth.py"},
	}
	require.NoError(t, Generate(path, d))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# Umbra Knowledge Base")
	assert.Contains(t, content, "| Files | 4 |")
	assert.Contains(t, content, "A CLI tool that watches code.")
	assert.Contains(t, content, "| cfg.py | high | 1 |")
	assert.Contains(t, content, "- `main.py`")

	sections := LoadSections(path)
	assert.Equal(t, d.QuickContext, sections.QuickContext)
	assert.Equal(t, d.ModuleDocs, sections.ModuleDocs)
	assert.Equal(t, d.APIReference, sections.APIReference)
}

func TestLoadSectionsMissingFile(t *testing.T) {
	sections := LoadSections(filepath.Join(t.TempDir(), "nope.md"))
	assert.Empty(t, sections.QuickContext)
	assert.Empty(t, sections.ModuleDocs)
}
