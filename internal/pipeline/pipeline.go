// Package pipeline turns one file change into an updated architecture
// diagram. An analyst pass decides whether the change is structural, a
// surgeon pass rewrites the diagram, and a validation loop retries the
// surgeon until the output is usable Mermaid or the retry budget is
// spent.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/mermaid"
)

// Change types the analyst may report.
const (
	ChangeNewService   = "new_service"
	ChangeNewDep       = "new_dependency"
	ChangeAPICall      = "api_call"
	ChangeDBConnection = "db_connection"
	ChangeInterService = "inter_service"
	ChangeAuth         = "auth"
	ChangeRefactor     = "refactor"
	ChangeCosmetic     = "cosmetic"
)

const (
	maxRetries      = 3
	maxAnalystCode  = 3000
	maxSurgeonCode  = 2000
)

// AnalysisResult is the analyst's verdict on one change.
type AnalysisResult struct {
	IsStructural       bool     `json:"is_structural"`
	ChangeType         string   `json:"change_type"`
	AffectedComponents []string `json:"affected_components"`
	Reasoning          string   `json:"reasoning"`
}

// Input is one change to run through the pipeline.
type Input struct {
	Path           string
	Content        string
	Diff           string
	CurrentDiagram string
}

// Result is the pipeline outcome. Updated is false when the change was
// cosmetic or every surgeon attempt produced invalid Mermaid.
type Result struct {
	Analysis       AnalysisResult
	UpdatedDiagram string
	Updated        bool
	Retries        int
}

// Pipeline runs changes through analysis and diagram surgery.
type Pipeline struct {
	gen ai.Generator
}

// New creates a pipeline backed by the given generator.
func New(gen ai.Generator) *Pipeline {
	return &Pipeline{gen: gen}
}

const analystSystem = `You analyze code to detect MAJOR architectural changes.

## YOUR GOAL:
Determine if a code change should appear on a HIGH-LEVEL architecture diagram.
Be VERY conservative - only TRUE architectural changes matter.

## IS STRUCTURAL (update diagram):
- Main entry point (main.py, app.py, index.ts, server.js)
- API server setup (FastAPI, Express, Flask, Django)
- Database connection (PostgreSQL, MongoDB, Redis, Prisma)
- External API client (Stripe, AWS, Firebase, OpenAI, Twilio)
- Message queue (Kafka, RabbitMQ, Celery)
- Authentication system (OAuth, JWT, Supabase Auth)

## NOT STRUCTURAL (skip):
- Helper functions, utilities, hooks
- Individual React/Vue components
- Models, schemas, types, interfaces
- Configuration files
- Tests
- Styling, assets
- Individual routes (only the router setup matters)
- Internal refactoring

## DECISION RULE:
Ask yourself: "Would this appear on a whiteboard diagram explaining the system to a new dev?"
If NO -> cosmetic
If YES -> structural

## Response (JSON only, no markdown):
{
    "is_structural": true,
    "change_type": "db_connection",
    "affected_components": ["API", "PostgreSQL"],
    "reasoning": "Added database connection"
}

change_type options:
- "new_service" - Main app/server entry point
- "new_dependency" - New library or module dependency
- "api_call" - External API integration
- "db_connection" - Database setup
- "inter_service" - Connection between internal services
- "auth" - Authentication system
- "refactor" - Structural rename or reorganization
- "cosmetic" - Everything else (DEFAULT to this if unsure)`

const surgeonSystem = `You are a Diagram Surgeon. You create SIMPLE, READABLE architecture diagrams.

## CRITICAL RULES:
1. Keep it SIMPLE - maximum 5-6 nodes total
2. Only show MAIN services, not every helper class
3. Use "graph LR" (Left to Right) for better readability
4. Group related items in subgraphs
5. NO COMMENTS in the diagram (no % or %% lines)

## Structure Example:
graph LR
    subgraph Core["Core Services"]
        API[API Gateway]
        Service[Main Service]
    end

    subgraph External["External APIs"]
        ExtAPI[External API]
    end

    subgraph Data["Data Stores"]
        DB[(Database)]
    end

    API --> Service
    Service --> ExtAPI
    Service --> DB

## Node Naming:
- Keep names SHORT: API[API], Auth[Auth], AI[AI Service]
- Max 2-3 words per label
- Use simple IDs (no spaces)

## STRICT RULES:
- Maximum 5-6 nodes TOTAL (not per subgraph)
- NO comments (no lines starting with % or %%)
- NO helper classes, utilities, or internal modules
- Only 1-2 external APIs maximum
- Simple connections only

## Output Format:
Output ONLY valid Mermaid starting with "graph LR"
No markdown fences, no explanations, no comments.`

// Run processes one change end to end.
func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	analysis := p.analyze(ctx, in)
	result := Result{Analysis: analysis}
	if !analysis.IsStructural {
		return result, nil
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result.Retries = attempt
		diagram, err := p.operate(ctx, in, analysis)
		if err != nil {
			slog.Warn("diagram update failed", "path", in.Path, "attempt", attempt, "error", err)
			continue
		}
		if v := mermaid.Validate(diagram); !v.Valid {
			slog.Debug("invalid diagram, retrying", "path", in.Path, "attempt", attempt, "errors", strings.Join(v.Errors, "; "))
			continue
		}
		result.UpdatedDiagram = diagram
		result.Updated = true
		return result, nil
	}

	slog.Warn("diagram update abandoned after retries", "path", in.Path, "retries", maxRetries)
	return result, nil
}

// analyze classifies the change. Any failure is treated as cosmetic so a
// flaky model call never rewrites the diagram.
func (p *Pipeline) analyze(ctx context.Context, in Input) AnalysisResult {
	diff := in.Diff
	if diff == "" {
		diff = "New file or full content"
	}
	prompt := fmt.Sprintf("## File: %s\n\n## Change:\n%s\n\n## Full File Content:\n```\n%s\n```\n\nAnalyze this change and determine if it affects the system architecture.\n",
		in.Path, diff, truncate(in.Content, maxAnalystCode))

	resp, err := p.gen.Generate(ctx, ai.Request{
		System:    analystSystem,
		Prompt:    prompt,
		MaxTokens: 500,
		Operation: "analyze_change",
	})
	if err != nil {
		slog.Warn("analysis failed, treating as cosmetic", "path", in.Path, "error", err)
		return AnalysisResult{ChangeType: ChangeCosmetic, Reasoning: "analysis failed: " + err.Error()}
	}

	parsed := ai.Parse[AnalysisResult](resp)
	if !parsed.Success {
		slog.Warn("unparseable analysis, treating as cosmetic", "path", in.Path, "error", parsed.Error)
		return AnalysisResult{ChangeType: ChangeCosmetic, Reasoning: "unparseable analysis"}
	}
	analysis := parsed.Data
	if analysis.ChangeType == "" {
		analysis.ChangeType = ChangeCosmetic
	}
	return analysis
}

func (p *Pipeline) operate(ctx context.Context, in Input, analysis AnalysisResult) (string, error) {
	prompt := fmt.Sprintf(`## Current Architecture Diagram:
%s

## Change Detected:
- Type: %s
- Affected Components: %s
- Reasoning: %s

## File: %s
`+"```"+`
%s
`+"```"+`

Update the diagram to reflect this change. Remember:
- Keep existing nodes and connections
- Add new nodes to appropriate subgraphs
- Add connections between related components
- Output ONLY the Mermaid diagram, starting with "graph LR"
`,
		in.CurrentDiagram, analysis.ChangeType, strings.Join(analysis.AffectedComponents, ", "),
		analysis.Reasoning, in.Path, truncate(in.Content, maxSurgeonCode))

	resp, err := p.gen.Generate(ctx, ai.Request{
		System:      surgeonSystem,
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   1000,
		Operation:   "update_diagram",
	})
	if err != nil {
		return "", err
	}
	return mermaid.Clean(resp), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
