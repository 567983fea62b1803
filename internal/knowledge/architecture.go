// Package knowledge owns the two markdown artifacts Umbra maintains:
// the live architecture document and the project knowledge base.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/umbra-dev/umbra/internal/mermaid"
)

const archHeader = "# Live Architecture"

const changesTableHeader = "| Time | File | Change |\n|------|------|--------|"

// WriteArchitecture writes a fresh architecture document.
func WriteArchitecture(path, summary, diagram string, fileCount int) error {
	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n> **Auto-generated by Umbra** - Do not edit manually\n> Last updated: %s\n> Scanned: %d files\n\n",
		archHeader, now.Format("2006-01-02 15:04:05"), fileCount)
	if summary != "" {
		fmt.Fprintf(&b, "## Project Summary\n\n%s\n\n", summary)
	}
	fmt.Fprintf(&b, "## System Overview\n\n```mermaid\n%s\n```\n\n## Recent Changes\n\n%s\n| %s | initial | Full project scan |\n",
		diagram, changesTableHeader, now.Format("15:04"))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// WriteSeedArchitecture writes the starting document with the empty
// diagram and no summary.
func WriteSeedArchitecture(path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n> **Auto-generated by Umbra** - Do not edit manually\n> Last updated: Starting...\n\n## System Overview\n\n```mermaid\n%s\n```\n\n## Recent Changes\n\n%s\n",
		archHeader, mermaid.SeedDiagram, changesTableHeader)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// LoadDiagram reads the current diagram out of the architecture document.
// A missing file or document without a diagram yields the seed diagram,
// so the pipeline always has something to operate on.
func LoadDiagram(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return mermaid.SeedDiagram
	}
	if d := mermaid.ExtractFromMarkdown(string(data)); d != "" {
		return d
	}
	return mermaid.SeedDiagram
}

var lastUpdatedRegex = regexp.MustCompile(`(?m)^> Last updated: .*$`)

// SaveDiagram replaces the embedded diagram and appends a row to the
// recent changes table.
func SaveDiagram(path, diagram, changedFile, description string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read architecture file: %w", err)
		}
		if err := WriteSeedArchitecture(path); err != nil {
			return err
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return err
		}
	}

	content, ok := mermaid.ReplaceInMarkdown(string(data), diagram)
	if !ok {
		return fmt.Errorf("no mermaid block in %s", path)
	}
	content = lastUpdatedRegex.ReplaceAllString(content,
		"> Last updated: "+time.Now().Format("2006-01-02 15:04:05"))
	content = appendChangeRow(content, changedFile, description)

	return os.WriteFile(path, []byte(content), 0o644)
}

// RecordChange appends a recent-changes row without touching the diagram.
func RecordChange(path, changedFile, description string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read architecture file: %w", err)
	}
	return os.WriteFile(path, []byte(appendChangeRow(string(data), changedFile, description)), 0o644)
}

// RemoveFromDiagram strips every diagram line mentioning a deleted file.
func RemoveFromDiagram(path, fileName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read architecture file: %w", err)
	}
	diagram := mermaid.ExtractFromMarkdown(string(data))
	if diagram == "" {
		return nil
	}
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	updated, _ := mermaid.ReplaceInMarkdown(string(data), mermaid.RemoveNode(diagram, name))
	return os.WriteFile(path, []byte(updated), 0o644)
}

// maxChangeRows bounds the recent-changes table, same limit as the
// in-memory change ring.
const maxChangeRows = 50

// appendChangeRow inserts a row right under the table header so the
// newest change reads first, dropping the oldest rows past the cap.
func appendChangeRow(content, changedFile, description string) string {
	// Markdown table cells cannot contain pipes.
	description = strings.ReplaceAll(description, "|", "/")
	row := fmt.Sprintf("| %s | %s | %s |", time.Now().Format("15:04"), changedFile, description)

	idx := strings.Index(content, changesTableHeader)
	if idx < 0 {
		return content + "\n" + row + "\n"
	}
	insertAt := idx + len(changesTableHeader)
	head := content[:insertAt]
	rest := strings.Split(content[insertAt:], "\n")

	kept := make([]string, 0, len(rest)+1)
	kept = append(kept, rest[0], row)
	rows := 1
	for _, line := range rest[1:] {
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			if rows >= maxChangeRows {
				continue
			}
			rows++
		}
		kept = append(kept, line)
	}
	return head + strings.Join(kept, "\n")
}
