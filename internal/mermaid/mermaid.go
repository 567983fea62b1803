// Package mermaid validates and manipulates Mermaid flowchart sources.
//
// Diagrams come back from the LLM as free text, so everything here is
// defensive string surgery: validation catches the failure modes we have
// actually seen (missing directives, unbalanced subgraphs, stray HTML),
// and the markdown helpers let the rest of the system treat
// LIVE_ARCHITECTURE.md as the single source of truth for the diagram.
package mermaid

import (
	"fmt"
	"regexp"
	"strings"
)

// SeedDiagram is the empty architecture every project starts from.
const SeedDiagram = `graph LR
    subgraph Core["Core Services"]
        App[Application]
    end

    subgraph External["External APIs"]
    end

    subgraph Data["Data Stores"]
    end
`

// ValidationResult reports the outcome of validating a diagram.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

var (
	directiveRegex = regexp.MustCompile(`^(graph|flowchart)\s+(TD|TB|LR|RL|BT)\b`)
	endLineRegex   = regexp.MustCompile(`^\s*end\s*$`)
	badArrowRegex  = regexp.MustCompile(`\w+->\w+`)
	subgraphRegex  = regexp.MustCompile(`(?s)subgraph[^\n]*\n(.*?)\n\s*end`)
)

// dangerous substrings reject script injection through node labels.
var dangerousPatterns = []string{"<script", "javascript:", "onclick", "onerror"}

// Validate checks a Mermaid source for structural problems. It is not a
// full parser; it enforces the handful of rules that distinguish a
// renderable diagram from LLM garbage.
func Validate(src string) ValidationResult {
	var errs, warns []string

	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return ValidationResult{Valid: false, Errors: []string{"empty diagram"}}
	}

	lines := strings.Split(trimmed, "\n")

	first := strings.TrimSpace(lines[0])
	if !directiveRegex.MatchString(first) {
		snippet := first
		if len(snippet) > 50 {
			snippet = snippet[:50]
		}
		errs = append(errs, fmt.Sprintf("diagram must start with 'graph TD' or similar directive, got: %s", snippet))
	}

	subgraphs := 0
	ends := 0
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "subgraph") {
			subgraphs++
		}
		if endLineRegex.MatchString(line) {
			ends++
		}
	}
	if subgraphs != ends {
		errs = append(errs, fmt.Sprintf("unbalanced subgraphs: %d 'subgraph' vs %d 'end'", subgraphs, ends))
	}

	lower := strings.ToLower(src)
	for _, p := range dangerousPatterns {
		if strings.Contains(lower, p) {
			errs = append(errs, fmt.Sprintf("potentially dangerous content detected: %s", p))
		}
	}

	if o, c := strings.Count(src, "["), strings.Count(src, "]"); o != c {
		errs = append(errs, fmt.Sprintf("unbalanced square brackets: %d '[' vs %d ']'", o, c))
	}
	if o, c := strings.Count(src, "("), strings.Count(src, ")"); o != c {
		errs = append(errs, fmt.Sprintf("unbalanced parentheses: %d '(' vs %d ')'", o, c))
	}

	if badArrowRegex.MatchString(src) {
		warns = append(warns, "found '->' instead of '-->'; Mermaid arrows use '-->'")
	}

	for _, m := range subgraphRegex.FindAllStringSubmatch(src, -1) {
		if strings.TrimSpace(m[1]) == "" {
			warns = append(warns, "found empty subgraph")
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}

// Clean strips markdown fences and comment lines from raw LLM output and
// drops any preamble before the graph directive.
func Clean(raw string) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "```") {
			continue
		}
		// Single % lines are invalid Mermaid; %% comments just add noise.
		if strings.HasPrefix(stripped, "%") {
			continue
		}
		kept = append(kept, line)
	}

	result := strings.TrimSpace(strings.Join(kept, "\n"))

	if !strings.HasPrefix(result, "graph ") && !strings.HasPrefix(result, "flowchart ") {
		resultLines := strings.Split(result, "\n")
		for i, line := range resultLines {
			t := strings.TrimSpace(line)
			if strings.HasPrefix(t, "graph ") || strings.HasPrefix(t, "flowchart ") {
				result = strings.Join(resultLines[i:], "\n")
				break
			}
		}
	}

	return result
}

const fence = "```mermaid"

// ExtractFromMarkdown returns the first mermaid-fenced block in a
// markdown document, or "" when none exists.
func ExtractFromMarkdown(md string) string {
	start := strings.Index(md, fence)
	if start < 0 {
		return ""
	}
	rest := md[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// ReplaceInMarkdown swaps the first mermaid-fenced block in md for the
// given diagram. When no fence exists the document is returned unchanged
// along with false.
func ReplaceInMarkdown(md, diagram string) (string, bool) {
	start := strings.Index(md, fence)
	if start < 0 {
		return md, false
	}
	bodyStart := start + len(fence)
	end := strings.Index(md[bodyStart:], "```")
	if end < 0 {
		return md, false
	}
	return md[:bodyStart] + "\n" + strings.TrimSpace(diagram) + "\n" + md[bodyStart+end:], true
}

// RemoveNode deletes every diagram line mentioning name. Used when a file
// is deleted from the project: cheaper and more predictable than asking
// the LLM to perform the removal.
func RemoveNode(diagram, name string) string {
	target := strings.ToLower(name)
	var kept []string
	for _, line := range strings.Split(diagram, "\n") {
		if strings.Contains(strings.ToLower(line), target) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
