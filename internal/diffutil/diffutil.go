// Package diffutil computes compact, classified diffs between file
// revisions. Output is shaped for two consumers: the dashboard timeline
// (classified lines with counts) and LLM prompts (a short ADDED/REMOVED
// text summary).
package diffutil

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// LineKind classifies a single diff line.
type LineKind string

const (
	LineAdd     LineKind = "add"
	LineRemove  LineKind = "remove"
	LineContext LineKind = "context"
	LineHeader  LineKind = "header"
)

// Line is one classified line of a diff.
type Line struct {
	Text string   `json:"line"`
	Kind LineKind `json:"type"`
}

// Stats counts added and removed lines across the whole diff.
type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Diff is the result of comparing two file revisions.
type Diff struct {
	// Text is a human/LLM readable summary of the change.
	Text string
	// Lines holds the most relevant classified lines, capped at maxLines.
	Lines []Line
	// Stats counts every added/removed line, not just the kept ones.
	Stats Stats
}

const (
	maxLines       = 20
	maxSummaryEach = 10
	contextLines   = 2
)

// Compute diffs old against new content. Either side may be empty.
func Compute(oldContent, newContent string) Diff {
	edits := myers.ComputeEdits(span.URIFromPath("a"), oldContent, newContent)
	unified := fmt.Sprint(gotextdiff.ToUnified("a", "b", oldContent, edits))

	var lines []Line
	var stats Stats

	for _, raw := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(raw, "+++"), strings.HasPrefix(raw, "---"):
			// File headers carry no information here.
		case strings.HasPrefix(raw, "@@"):
			lines = append(lines, Line{Text: raw, Kind: LineHeader})
		case strings.HasPrefix(raw, "+"):
			stats.Added++
			lines = append(lines, Line{Text: raw[1:], Kind: LineAdd})
		case strings.HasPrefix(raw, "-"):
			stats.Removed++
			lines = append(lines, Line{Text: raw[1:], Kind: LineRemove})
		case strings.HasPrefix(raw, " "):
			lines = append(lines, Line{Text: raw[1:], Kind: LineContext})
		}
	}

	lines = trimContext(lines)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	return Diff{
		Text:  summarize(lines),
		Lines: lines,
		Stats: stats,
	}
}

// trimContext narrows each hunk to at most contextLines of unchanged
// text around every change. gotextdiff hardcodes three context lines;
// the prompt and dashboard formats want two.
func trimContext(lines []Line) []Line {
	var out []Line
	var run []Line
	prevChange := false

	flush := func(nextChange bool) {
		switch {
		case prevChange && nextChange:
			if len(run) > 2*contextLines {
				run = append(run[:contextLines:contextLines], run[len(run)-contextLines:]...)
			}
		case prevChange:
			if len(run) > contextLines {
				run = run[:contextLines]
			}
		case nextChange:
			if len(run) > contextLines {
				run = run[len(run)-contextLines:]
			}
		default:
			run = nil
		}
		out = append(out, run...)
		run = nil
	}

	for _, l := range lines {
		switch l.Kind {
		case LineContext:
			run = append(run, l)
		case LineHeader:
			flush(false)
			prevChange = false
			out = append(out, l)
		default:
			flush(true)
			prevChange = true
			out = append(out, l)
		}
	}
	flush(false)
	return out
}

// summarize builds the ADDED/REMOVED text block fed to the LLM.
func summarize(lines []Line) string {
	var added, removed []string
	for _, l := range lines {
		switch l.Kind {
		case LineAdd:
			if len(added) < maxSummaryEach {
				added = append(added, l.Text)
			}
		case LineRemove:
			if len(removed) < maxSummaryEach {
				removed = append(removed, l.Text)
			}
		}
	}

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "ADDED:\n"+strings.Join(added, "\n"))
	}
	if len(removed) > 0 {
		parts = append(parts, "REMOVED:\n"+strings.Join(removed, "\n"))
	}
	if len(parts) == 0 {
		return "Minor changes"
	}
	return strings.Join(parts, "\n\n")
}
