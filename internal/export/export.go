// Package export renders the standalone HTML dashboard from the live
// architecture file and the latest analysis.
package export

import (
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/umbra-dev/umbra/internal/health"
	"github.com/umbra-dev/umbra/internal/insights"
	"github.com/umbra-dev/umbra/internal/mermaid"
	"github.com/umbra-dev/umbra/internal/tracker"
)

//go:embed dashboard.html.tmpl
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "dashboard.html.tmpl"))

const maxRecentChanges = 10

// entryPointKeywords are file names that mark where the program starts.
var entryPointKeywords = []string{
	"main.py", "app.py", "index.ts", "index.js", "server.py", "__main__.py",
}

// externalAPIKeywords are service names worth surfacing as chips when
// they appear in the architecture diagram.
var externalAPIKeywords = []string{
	"Gemini", "OpenAI", "GPT", "Claude", "Stripe", "Firebase", "Supabase",
	"PostgreSQL", "MongoDB", "Redis", "AWS", "Azure", "GCP", "Twilio", "SendGrid",
}

// Input carries everything the dashboard needs beyond the architecture file.
type Input struct {
	ProjectName string
	Report      insights.Report
	// Health, when set, overrides the score card with the deep health
	// scan (broken imports, cycles, secrets) the watch loop runs.
	Health  *health.Report
	Changes []tracker.Change
}

type healthView struct {
	Score  int
	Grade  string
	Status string
}

type pageData struct {
	ProjectName   string
	GeneratedAt   time.Time
	Diagram       string
	SummaryHTML   template.HTML
	EntryPoints   []string
	ExternalAPIs  []string
	Health        healthView
	Metrics       insights.Metrics
	Issues        []insights.Insight
	RecentChanges []tracker.Change
	HealthColor   template.CSS
	FilesJSON     template.JS
}

// HTML reads the architecture markdown at archPath and writes a
// self-contained dashboard to outPath.
func HTML(archPath, outPath string, in Input) error {
	raw, err := os.ReadFile(archPath)
	if err != nil {
		return fmt.Errorf("reading architecture file: %w", err)
	}
	content := string(raw)

	diagram := mermaid.ExtractFromMarkdown(content)
	if diagram == "" {
		diagram = mermaid.SeedDiagram
	}

	changes := in.Changes
	if len(changes) > maxRecentChanges {
		changes = changes[:maxRecentChanges]
	}

	hv := healthView{
		Score:  in.Report.Health.Score,
		Grade:  in.Report.Health.Grade,
		Status: in.Report.Health.Status,
	}
	if in.Health != nil {
		hv = healthView{
			Score:  in.Health.Score,
			Grade:  in.Health.Grade,
			Status: statusFor(in.Health.Score),
		}
	}

	data := pageData{
		ProjectName:   in.ProjectName,
		GeneratedAt:   time.Now(),
		Diagram:       diagram,
		SummaryHTML:   MarkdownToHTML(extractSummary(content)),
		EntryPoints:   ExtractEntryPoints(diagram),
		ExternalAPIs:  ExtractExternalAPIs(diagram),
		Health:        hv,
		Metrics:       in.Report.Metrics,
		Issues:        in.Report.Insights,
		RecentChanges: changes,
		HealthColor:   healthColor(hv.Score),
		FilesJSON:     filesJSON(in.Report.Metrics.LargestFiles),
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating dashboard: %w", err)
	}
	defer f.Close()

	if err := dashboardTmpl.Execute(f, data); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	return nil
}

// ExtractEntryPoints scans the diagram for well-known entry file names.
func ExtractEntryPoints(diagram string) []string {
	var found []string
	for _, kw := range entryPointKeywords {
		if strings.Contains(diagram, kw) {
			found = append(found, kw)
		}
	}
	if len(found) == 0 {
		found = []string{"main.py"}
	}
	return found
}

// ExtractExternalAPIs scans the diagram for service names it mentions.
func ExtractExternalAPIs(diagram string) []string {
	var found []string
	for _, kw := range externalAPIKeywords {
		if strings.Contains(diagram, kw) {
			found = append(found, kw)
		}
	}
	if len(found) == 0 {
		found = []string{"None detected"}
	}
	return found
}

var (
	mdTableRegex  = regexp.MustCompile(`(?m)^\|(.+)\|\n\|[-:| ]+\|\n((?:\|.+\|\n?)+)`)
	mdHeaderRegex = regexp.MustCompile(`(?m)^#{1,4}\s+(.+)$`)
	mdBoldRegex   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdCodeRegex   = regexp.MustCompile("`([^`]+)`")
	mdListRegex   = regexp.MustCompile(`(?m)^[-*]\s+(.+)$`)
)

// MarkdownToHTML converts the small markdown subset the generated
// summaries use into HTML. Input is escaped before conversion.
func MarkdownToHTML(md string) template.HTML {
	md = strings.TrimSpace(md)
	if md == "" {
		return "No summary available."
	}
	s := html.EscapeString(md)

	s = mdTableRegex.ReplaceAllStringFunc(s, renderTable)
	s = mdHeaderRegex.ReplaceAllString(s, "<h4>$1</h4>")
	s = mdBoldRegex.ReplaceAllString(s, "<strong>$1</strong>")
	s = mdCodeRegex.ReplaceAllString(s, "<code>$1</code>")
	s = mdListRegex.ReplaceAllString(s, "<li>$1</li>")
	s = strings.ReplaceAll(s, "\n\n", "<br><br>")

	return template.HTML(s)
}

func renderTable(block string) string {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 2 {
		return block
	}
	var b strings.Builder
	b.WriteString("<table><tr>")
	for _, cell := range splitRow(lines[0]) {
		b.WriteString("<th>" + cell + "</th>")
	}
	b.WriteString("</tr>")
	for _, line := range lines[2:] {
		b.WriteString("<tr>")
		for _, cell := range splitRow(line) {
			b.WriteString("<td>" + cell + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func splitRow(line string) []string {
	line = strings.Trim(strings.TrimSpace(line), "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// extractSummary pulls the prose between the summary and diagram
// headings of the architecture file.
func extractSummary(content string) string {
	const start = "## Project Summary"
	const end = "## System Overview"
	i := strings.Index(content, start)
	if i < 0 {
		return ""
	}
	rest := content[i+len(start):]
	if j := strings.Index(rest, end); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func statusFor(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Needs Improvement"
	case score >= 40:
		return "Poor"
	default:
		return "Critical"
	}
}

func healthColor(score int) template.CSS {
	switch {
	case score >= 90:
		return "#3ecf8e"
	case score >= 70:
		return "#e8b339"
	default:
		return "#e8556d"
	}
}

func filesJSON(files []insights.FileSize) template.JS {
	sorted := make([]insights.FileSize, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	out, err := json.Marshal(sorted)
	if err != nil {
		return "[]"
	}
	return template.JS(out)
}
