// Package chat answers natural language questions about the watched
// codebase, backed by the architecture document and the code itself.
package chat

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/scan"
)

const (
	// maxContextFiles bounds how many files go into the prompt.
	maxContextFiles = 20
	// maxFileBytes truncates individual files in the prompt.
	maxFileBytes = 5000
)

const systemPromptFmt = `You are Umbra, an AI assistant that knows EVERYTHING about this codebase.

You have access to:
1. The project's architecture diagram
2. A summary of the project
3. The actual code files

## YOUR PERSONALITY:
- You are helpful, concise, and technical
- You speak like a senior developer colleague
- You give SPECIFIC answers with file paths and line references
- You don't waste words

## RESPONSE FORMAT:
- Be concise (max 3-4 paragraphs)
- Always reference specific files when relevant
- Use code blocks for code snippets
- If you don't know, say "I don't see that in the codebase"

## CONTEXT PROVIDED:
%s

## CODEBASE FILES:
%s`

// Session answers questions about one project.
type Session struct {
	gen      ai.Generator
	root     string
	archFile string
}

// NewSession creates a chat session. archFile is the architecture
// document used as context; it may not exist yet.
func NewSession(gen ai.Generator, root, archFile string) *Session {
	return &Session{gen: gen, root: root, archFile: archFile}
}

// Ask answers a single question.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	files, err := scan.Load(s.root)
	if err != nil {
		return "", fmt.Errorf("load project files: %w", err)
	}

	resp, err := s.gen.Generate(ctx, ai.Request{
		System:      fmt.Sprintf(systemPromptFmt, s.architectureContext(), formatFiles(files)),
		Prompt:      question,
		Temperature: 0.3,
		MaxTokens:   2000,
		Operation:   "chat",
	})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

func (s *Session) architectureContext() string {
	data, err := os.ReadFile(s.archFile)
	if err != nil {
		return "No architecture context available yet."
	}
	return "## Architecture Diagram\n" + string(data)
}

// priorityPatterns order files so entry points and wiring land in the
// prompt before leaf modules.
var priorityPatterns = []string{"main", "app", "index", "server", "api", "route", "config"}

func filePriority(rel string) int {
	lower := strings.ToLower(rel)
	for i, p := range priorityPatterns {
		if strings.Contains(lower, p) {
			return i
		}
	}
	return len(priorityPatterns)
}

func formatFiles(files []scan.File) string {
	if len(files) == 0 {
		return "No code files found."
	}

	sorted := append([]scan.File(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filePriority(sorted[i].Rel) < filePriority(sorted[j].Rel)
	})
	if len(sorted) > maxContextFiles {
		sorted = sorted[:maxContextFiles]
	}

	var b strings.Builder
	for _, f := range sorted {
		content := f.Content
		if len(content) > maxFileBytes {
			content = content[:maxFileBytes] + "\n\n... [truncated]"
		}
		fmt.Fprintf(&b, "### %s\n```\n%s\n```\n\n", f.Rel, content)
	}
	return b.String()
}
