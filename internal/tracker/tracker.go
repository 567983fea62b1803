package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/diffutil"
)

// ChangeType classifies what happened to a file.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// ChangeIntent is a best-effort guess at why a change was made.
type ChangeIntent string

const (
	IntentFeature  ChangeIntent = "feature"
	IntentBugfix   ChangeIntent = "bugfix"
	IntentRefactor ChangeIntent = "refactor"
	IntentCleanup  ChangeIntent = "cleanup"
	IntentConfig   ChangeIntent = "config"
	IntentBreaking ChangeIntent = "breaking"
	IntentUnknown  ChangeIntent = "unknown"
)

// ImpactLevel grades the blast radius of a change.
type ImpactLevel string

const (
	ImpactNone     ImpactLevel = "none"
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// Change is one tracked file change with everything derived from it.
type Change struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"session_id"`
	Path         string       `json:"path"`
	Type         ChangeType   `json:"type"`
	Intent       ChangeIntent `json:"intent"`
	Impact       ImpactLevel  `json:"impact"`
	Description  string       `json:"description"`
	Dependents   []string     `json:"dependents,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	LinesAdded   int          `json:"lines_added"`
	LinesRemoved int          `json:"lines_removed"`
	Timestamp    time.Time    `json:"timestamp"`
}

const recentChangeLimit = 50

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"][A-Za-z0-9_\-]{16,}['"]`),
	regexp.MustCompile(`(?i)(secret|password|passwd|token)\s*[:=]\s*['"][^'"]{8,}['"]`),
	regexp.MustCompile(`(?i)aws_access_key_id\s*[:=]`),
	regexp.MustCompile(`-----BEGIN (RSA |EC )?PRIVATE KEY-----`),
}

var intentRules = []struct {
	intent   ChangeIntent
	keywords []string
}{
	{IntentBugfix, []string{"fix", "bug", "patch", "hotfix", "issue"}},
	{IntentCleanup, []string{"cleanup", "remove", "delete", "unused", "deprecated"}},
	{IntentRefactor, []string{"refactor", "rename", "restructure", "reorganize"}},
	{IntentFeature, []string{"add", "new", "feature", "implement", "create"}},
}

// Tracker accumulates changes for one watch session, maintaining the
// dependency graph and optionally persisting history.
type Tracker struct {
	mu sync.Mutex

	sessionID string
	graph     *DependencyGraph
	gen       ai.Generator
	store     *Store

	recent []Change
	total  int
}

// New creates a session tracker. gen and store may be nil; without gen
// descriptions fall back to diff statistics, without store nothing is
// persisted.
func New(gen ai.Generator, store *Store) *Tracker {
	return &Tracker{
		sessionID: uuid.NewString(),
		graph:     NewDependencyGraph(),
		gen:       gen,
		store:     store,
	}
}

// SessionID returns the identifier for this watch session.
func (t *Tracker) SessionID() string { return t.sessionID }

// Graph exposes the dependency graph for prefill and queries.
func (t *Tracker) Graph() *DependencyGraph { return t.graph }

// Prefill seeds the dependency graph from the current file contents.
func (t *Tracker) Prefill(files map[string]string) {
	for path, content := range files {
		t.graph.AddFile(path, content)
	}
}

// Record tracks a change: it updates the graph, grades impact and intent,
// scans for warnings, and stores the result.
func (t *Tracker) Record(ctx context.Context, path string, typ ChangeType, oldContent, newContent string) Change {
	diff := diffutil.Compute(oldContent, newContent)

	// Dependents must be computed before the graph is updated for a
	// deletion, otherwise the file is already gone.
	dependents := t.graph.Dependents(path)

	switch typ {
	case ChangeDeleted:
		t.graph.RemoveFile(path)
	default:
		t.graph.AddFile(path, newContent)
	}

	ch := Change{
		ID:           uuid.NewString(),
		SessionID:    t.sessionID,
		Path:         path,
		Type:         typ,
		Intent:       classifyIntent(path, typ, changedLineText(diff)),
		Impact:       gradeImpact(typ, dependents, diff),
		Dependents:   dependents,
		Warnings:     collectWarnings(path, typ, newContent, diff, dependents),
		LinesAdded:   diff.Stats.Added,
		LinesRemoved: diff.Stats.Removed,
		Timestamp:    time.Now(),
	}
	ch.Description = t.describe(ctx, ch, diff)

	t.mu.Lock()
	t.total++
	t.recent = append(t.recent, ch)
	if len(t.recent) > recentChangeLimit {
		t.recent = t.recent[len(t.recent)-recentChangeLimit:]
	}
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.SaveChange(ctx, ch); err != nil {
			slog.Warn("failed to persist change", "path", path, "error", err)
		}
	}
	return ch
}

// Recent returns up to n most recent changes, newest first.
func (t *Tracker) Recent(n int) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.recent) {
		n = len(t.recent)
	}
	out := make([]Change, n)
	for i := 0; i < n; i++ {
		out[i] = t.recent[len(t.recent)-1-i]
	}
	return out
}

// Summary describes the session in one line.
func (t *Tracker) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total == 0 {
		return "No changes tracked this session."
	}
	counts := map[ChangeType]int{}
	warnings := 0
	for _, ch := range t.recent {
		counts[ch.Type]++
		warnings += len(ch.Warnings)
	}
	parts := []string{fmt.Sprintf("%d changes", t.total)}
	for _, typ := range []ChangeType{ChangeCreated, ChangeModified, ChangeDeleted, ChangeRenamed} {
		if c := counts[typ]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, typ))
		}
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", warnings))
	}
	return strings.Join(parts, ", ")
}

func (t *Tracker) describe(ctx context.Context, ch Change, diff diffutil.Diff) string {
	fallback := statsDescription(ch, diff)
	if t.gen == nil || ch.Type == ChangeDeleted {
		return fallback
	}

	resp, err := t.gen.Generate(ctx, ai.Request{
		System:      "You summarize code changes. Reply with one short sentence, no markdown.",
		Prompt:      fmt.Sprintf("File %s was %s.\n\nDiff:\n%s\n\nDescribe the change in one sentence.", ch.Path, ch.Type, diff.Text),
		Temperature: 0.3,
		MaxTokens:   100,
		Operation:   "describe_change",
	})
	if err != nil {
		slog.Debug("change description fell back to stats", "path", ch.Path, "error", err)
		return fallback
	}
	line := strings.TrimSpace(strings.SplitN(resp, "\n", 2)[0])
	if line == "" {
		return fallback
	}
	return line
}

func statsDescription(ch Change, diff diffutil.Diff) string {
	switch ch.Type {
	case ChangeCreated:
		return fmt.Sprintf("New file with %d lines", diff.Stats.Added)
	case ChangeDeleted:
		return fmt.Sprintf("File deleted (%d lines removed)", diff.Stats.Removed)
	default:
		return fmt.Sprintf("+%d/-%d lines", diff.Stats.Added, diff.Stats.Removed)
	}
}

// changedLineText joins just the added and removed line contents, without
// the summary markers that would confuse keyword matching.
func changedLineText(diff diffutil.Diff) string {
	var b strings.Builder
	for _, l := range diff.Lines {
		if l.Kind == diffutil.LineAdd || l.Kind == diffutil.LineRemove {
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func classifyIntent(path string, typ ChangeType, diffText string) ChangeIntent {
	if typ == ChangeDeleted {
		return IntentCleanup
	}
	haystack := strings.ToLower(filepath.Base(path) + "\n" + diffText)
	if strings.Contains(strings.ToLower(filepath.Base(path)), "config") ||
		strings.HasSuffix(path, ".env") || strings.HasSuffix(path, ".json") ||
		strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return IntentConfig
	}
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.intent
			}
		}
	}
	if typ == ChangeCreated {
		return IntentFeature
	}
	return IntentUnknown
}

func gradeImpact(typ ChangeType, dependents []string, diff diffutil.Diff) ImpactLevel {
	if typ == ChangeDeleted && len(dependents) > 0 {
		return ImpactCritical
	}
	switch {
	case len(dependents) == 0:
		if diff.Stats.Added+diff.Stats.Removed == 0 {
			return ImpactNone
		}
		return ImpactLow
	case len(dependents) <= 2:
		return ImpactLow
	case len(dependents) <= 5:
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

func collectWarnings(path string, typ ChangeType, content string, diff diffutil.Diff, dependents []string) []string {
	var warnings []string
	if typ == ChangeDeleted && len(dependents) > 0 {
		warnings = append(warnings, fmt.Sprintf("deleted file is imported by %d other file(s)", len(dependents)))
	}
	scanned := content
	if typ == ChangeModified {
		// Only flag secrets the change introduced, not preexisting ones.
		var added []string
		for _, line := range diff.Lines {
			if line.Kind == diffutil.LineAdd {
				added = append(added, line.Text)
			}
		}
		scanned = strings.Join(added, "\n")
	}
	for _, re := range secretPatterns {
		if re.MatchString(scanned) {
			warnings = append(warnings, "possible hardcoded secret detected")
			break
		}
	}
	return warnings
}
