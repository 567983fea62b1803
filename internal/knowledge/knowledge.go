package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/umbra-dev/umbra/internal/docs"
)

// Section markers let incremental updates re-read the expensive
// generated sections instead of re-running the model.
const (
	sectionQuickContext = "quick-context"
	sectionModuleDocs   = "module-docs"
	sectionAPIReference = "api-reference"
)

// Metrics summarizes project size in the knowledge header.
type Metrics struct {
	TotalFiles   int
	TotalLines   int
	EntryPoints  int
	ExternalAPIs int
}

// RecentChange is one row in the knowledge file's change log.
type RecentChange struct {
	Timestamp   time.Time
	Path        string
	Type        string
	Description string
}

// Data is everything that goes into the knowledge file.
type Data struct {
	ProjectName   string
	Diagram       string
	QuickContext  string
	ModuleDocs    string
	APIReference  string
	Security      []docs.SecurityReport
	Metrics       Metrics
	RecentChanges []RecentChange
	Files         []string
}

// Sections holds the regenerable pieces recovered from an existing
// knowledge file.
type Sections struct {
	QuickContext string
	ModuleDocs   string
	APIReference string
}

func marker(name string) (string, string) {
	return fmt.Sprintf("<!-- umbra:%s -->", name), fmt.Sprintf("<!-- /umbra:%s -->", name)
}

// Generate writes the knowledge base file.
func Generate(path string, d Data) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Umbra Knowledge Base\n\n> **Auto-generated by Umbra** - The full project brain for LLMs and developers\n> Last updated: %s\n\n",
		time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "## Project Metrics\n\n| Metric | Value |\n|--------|-------|\n| Files | %d |\n| Lines | %d |\n| Entry points | %d |\n| External APIs | %d |\n\n",
		d.Metrics.TotalFiles, d.Metrics.TotalLines, d.Metrics.EntryPoints, d.Metrics.ExternalAPIs)

	writeSection(&b, "## Quick Context", sectionQuickContext, d.QuickContext)

	fmt.Fprintf(&b, "## Architecture\n\n```mermaid\n%s\n```\n\n", d.Diagram)

	writeSection(&b, "## Module Documentation", sectionModuleDocs, d.ModuleDocs)
	writeSection(&b, "## API Reference", sectionAPIReference, d.APIReference)

	if len(d.Security) > 0 {
		b.WriteString("## Security Scan\n\n| File | Risk | Issues |\n|------|------|--------|\n")
		for _, r := range d.Security {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", r.File, r.RiskLevel, len(r.Issues))
		}
		b.WriteString("\n")
		for _, r := range d.Security {
			for _, issue := range r.Issues {
				fmt.Fprintf(&b, "- **%s** (%s): %s. %s\n", issue.Type, r.File, issue.Description, issue.Recommendation)
			}
		}
		b.WriteString("\n")
	}

	if len(d.RecentChanges) > 0 {
		b.WriteString("## Recent Changes\n\n| Time | File | Type | Description |\n|------|------|------|-------------|\n")
		for _, c := range d.RecentChanges {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				c.Timestamp.Format("15:04:05"), c.Path, c.Type, strings.ReplaceAll(c.Description, "|", "/"))
		}
		b.WriteString("\n")
	}

	if len(d.Files) > 0 {
		b.WriteString("## File Index\n\n")
		for _, f := range d.Files {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		b.WriteString("\n")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeSection(b *strings.Builder, heading, name, content string) {
	if content == "" {
		return
	}
	open, closing := marker(name)
	fmt.Fprintf(b, "%s\n\n%s\n%s\n%s\n\n", heading, open, content, closing)
}

// LoadSections recovers the marked sections from an existing knowledge
// file. Missing files or sections come back empty; callers regenerate
// whatever is absent.
func LoadSections(path string) Sections {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sections{}
	}
	content := string(data)
	return Sections{
		QuickContext: extractSection(content, sectionQuickContext),
		ModuleDocs:   extractSection(content, sectionModuleDocs),
		APIReference: extractSection(content, sectionAPIReference),
	}
}

func extractSection(content, name string) string {
	open, closing := marker(name)
	start := strings.Index(content, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := strings.Index(content[start:], closing)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(content[start : start+end])
}
