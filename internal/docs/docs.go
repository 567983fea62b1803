// Package docs generates module documentation, security scans, API
// references and project summaries.
package docs

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/health"
	"github.com/umbra-dev/umbra/internal/scan"
)

// maxCodeBytes caps the code sent in a single prompt.
const maxCodeBytes = 8000

const docSystem = "You are a documentation expert. You generate clear, concise module documentation in markdown."

const docPromptFmt = `Analyze this module and generate documentation.

**File**: %s
**Code**:
` + "```" + `
%s
` + "```" + `

Generate documentation in this EXACT format:

### %s

**Purpose**: [One sentence explaining what this module does]

**Key Components**:
- ` + "`ComponentName`" + `: Brief description
- ` + "`function_name()`" + `: Brief description

**Dependencies**: [List external imports]

Keep it SHORT and USEFUL. Focus on WHAT it does, not HOW.`

// GenerateModuleDoc asks the model to document a single module.
func GenerateModuleDoc(ctx context.Context, gen ai.Generator, rel, code string) (string, error) {
	resp, err := gen.Generate(ctx, ai.Request{
		System:      docSystem,
		Prompt:      fmt.Sprintf(docPromptFmt, rel, truncate(code, maxCodeBytes), fileStem(rel)),
		Temperature: 0.3,
		MaxTokens:   1000,
		Operation:   "module_doc",
	})
	if err != nil {
		return "", fmt.Errorf("generate module doc for %s: %w", rel, err)
	}
	return strings.TrimSpace(resp), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fileStem(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}

// APIReference builds a markdown API reference from structural
// extraction alone; it needs no model.
func APIReference(files []scan.File) string {
	var sections []string
	for _, f := range files {
		info := ExtractModuleInfo(f.Rel, f.Content)
		if len(info.Functions) == 0 && len(info.Classes) == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "\n#### `%s`\n", fileStem(f.Rel))
		for _, fn := range info.Functions {
			fmt.Fprintf(&b, "\n- `%s(%s)`", fn.Name, strings.Join(fn.Args, ", "))
			if fn.Doc != "" {
				fmt.Fprintf(&b, " - %s", fn.Doc)
			}
		}
		for _, cls := range info.Classes {
			methods := cls.Methods
			suffix := ""
			if len(methods) > 5 {
				methods = methods[:5]
				suffix = ", ..."
			}
			fmt.Fprintf(&b, "\n- `class %s` - Methods: %s%s", cls.Name, strings.Join(methods, ", "), suffix)
		}
		sections = append(sections, b.String())
	}
	if len(sections) == 0 {
		return "No public API detected."
	}
	return strings.Join(sections, "\n")
}

const quickContextPromptFmt = `Based on this project information, write a SINGLE paragraph (3-5 sentences) that gives an LLM everything it needs to understand this project quickly.

**Project Summary**:
%s

**Files**:
%s

Write a dense, information-rich paragraph. Include: what the project does, main technologies, key entry points, and architecture pattern. NO bullet points, NO headers, just one paragraph.`

// QuickContext produces the one-paragraph orientation blurb for the
// knowledge file.
func QuickContext(ctx context.Context, gen ai.Generator, summary string, fileList []string) (string, error) {
	if len(fileList) > 30 {
		fileList = fileList[:30]
	}
	resp, err := gen.Generate(ctx, ai.Request{
		Prompt:      fmt.Sprintf(quickContextPromptFmt, summary, strings.Join(fileList, "\n")),
		Temperature: 0.3,
		MaxTokens:   300,
		Operation:   "quick_context",
	})
	if err != nil {
		return "", fmt.Errorf("generate quick context: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

const summarySystem = `You are a senior developer who explains codebases clearly and concisely.

Given information about a project, provide a brief summary that helps a new developer understand it in 30 seconds.

## Output Format (Markdown):

**Type:** [API/CLI/Library/Web App/etc.]
**Stack:** [Main technologies, comma separated]
**Size:** [X files, Y main services]

### What it does
[2-3 sentences explaining what this project does and its purpose]

### Key Entry Points
- ` + "`filename.py`" + ` → Brief description

### External Dependencies
- Service Name (what it's used for)

## Rules:
- Be concise - developers are busy
- Focus on the BIG PICTURE, not details
- Mention only the MAIN entry points (max 3-4)
- Only list EXTERNAL services (APIs, databases), not libraries`

// ProjectSummary generates the natural language project summary, falling
// back to a deterministic stub when the model is unavailable.
func ProjectSummary(ctx context.Context, gen ai.Generator, projectName, diagram string, fileList []string) string {
	shown := fileList
	more := ""
	if len(shown) > 20 {
		shown = shown[:20]
		more = "\n..."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Project: %s\n\n## Architecture Diagram:\n```mermaid\n%s\n```\n\n## Files (%d total):\n", projectName, diagram, len(fileList))
	for _, f := range shown {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString(more)
	b.WriteString("\nBased on this information, generate a project summary.\n")

	resp, err := gen.Generate(ctx, ai.Request{
		System:      summarySystem,
		Prompt:      b.String(),
		Temperature: 0.3,
		MaxTokens:   1000,
		Operation:   "project_summary",
	})
	if err != nil {
		return fmt.Sprintf("**Type:** Unknown\n**Stack:** Unknown\n**Size:** %d files\n\n### What it does\nUnable to generate summary. Please check your API key.\n", len(fileList))
	}
	return strings.TrimSpace(resp)
}

// QuickSummary condenses a diagram into one sentence for headers.
func QuickSummary(ctx context.Context, gen ai.Generator, diagram string) string {
	prompt := fmt.Sprintf(`Based on this architecture diagram, write a ONE sentence summary (max 100 chars):

%s

Example: "FastAPI backend with PostgreSQL and Stripe integration"
Just the sentence, nothing else.`, diagram)

	resp, err := gen.Generate(ctx, ai.Request{
		Prompt:      prompt,
		Temperature: 0,
		MaxTokens:   100,
		Operation:   "quick_summary",
	})
	if err != nil {
		return "Architecture diagram"
	}
	return strings.Trim(strings.TrimSpace(resp), `"`)
}

// SecurityIssue is one finding from a security scan.
type SecurityIssue struct {
	Type           string `json:"type"`
	Line           int    `json:"line"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// SecurityReport is the scan result for one file.
type SecurityReport struct {
	File      string          `json:"file"`
	RiskLevel string          `json:"risk_level"`
	Issues    []SecurityIssue `json:"issues"`
}

const securityPromptFmt = `You are a security expert. Analyze this code for potential vulnerabilities.

**File**: %s
**Code**:
` + "```" + `
%s
` + "```" + `

Check for these vulnerabilities:
1. Hardcoded secrets/API keys
2. SQL injection risks
3. Command injection (os.system, subprocess without validation)
4. Path traversal vulnerabilities
5. Insecure deserialization
6. Missing input validation
7. Insecure file operations
8. Debug code left in production

Respond in this EXACT format (JSON):
{
  "file": "%s",
  "risk_level": "none|low|medium|high|critical",
  "issues": [
    {
      "type": "vulnerability type",
      "line": 0,
      "description": "brief description",
      "recommendation": "how to fix"
    }
  ]
}

If no issues found, return an empty issues array with risk_level "none".
Return ONLY valid JSON, no markdown.`

// ScanSecurity checks a file for vulnerabilities. With a nil generator
// it degrades to the pattern-based secret detector.
func ScanSecurity(ctx context.Context, gen ai.Generator, rel, code string) SecurityReport {
	if gen == nil {
		return fallbackSecurityScan(rel, code)
	}

	resp, err := gen.Generate(ctx, ai.Request{
		Prompt:      fmt.Sprintf(securityPromptFmt, rel, truncate(code, maxCodeBytes), rel),
		Temperature: 0.1,
		MaxTokens:   1000,
		Operation:   "security_scan",
	})
	if err != nil {
		return fallbackSecurityScan(rel, code)
	}

	parsed := ai.Parse[SecurityReport](resp)
	if !parsed.Success {
		return fallbackSecurityScan(rel, code)
	}
	report := parsed.Data
	report.File = rel
	if report.RiskLevel == "" {
		report.RiskLevel = "none"
	}
	return report
}

func fallbackSecurityScan(rel, code string) SecurityReport {
	report := SecurityReport{File: rel, RiskLevel: "none", Issues: []SecurityIssue{}}
	for _, issue := range health.CheckFile(rel, code) {
		if issue.Type != health.IssueSecret {
			continue
		}
		report.Issues = append(report.Issues, SecurityIssue{
			Type:           "hardcoded_secret",
			Line:           issue.Line,
			Description:    issue.Message,
			Recommendation: issue.Suggestion,
		})
	}
	if len(report.Issues) > 0 {
		report.RiskLevel = "high"
	}
	return report
}
