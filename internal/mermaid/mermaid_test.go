package mermaid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsSeedDiagram(t *testing.T) {
	result := Validate(SeedDiagram)
	require.True(t, result.Valid, "seed diagram should validate: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestValidate_EmptyDiagram(t *testing.T) {
	for _, src := range []string{"", "   ", "\n\n"} {
		result := Validate(src)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors, "empty diagram")
	}
}

func TestValidate_RequiresDirective(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		valid bool
	}{
		{"graph TD", "graph TD\n    A[App]", true},
		{"graph LR", "graph LR\n    A[App] --> B[DB]", true},
		{"flowchart TB", "flowchart TB\n    A[App]", true},
		{"missing directive", "A[App] --> B[DB]", false},
		{"sequence diagram", "sequenceDiagram\n    A->>B: hi", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Validate(tt.src).Valid)
		})
	}
}

func TestValidate_UnbalancedSubgraphs(t *testing.T) {
	src := "graph LR\n    subgraph Core\n        A[App]\n"
	result := Validate(src)
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "unbalanced subgraphs")
}

func TestValidate_DangerousContent(t *testing.T) {
	src := "graph LR\n    A[<script>alert(1)</script>]"
	result := Validate(src)
	assert.False(t, result.Valid)
}

func TestValidate_UnbalancedBrackets(t *testing.T) {
	result := Validate("graph LR\n    A[App --> B[DB]")
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "unbalanced square brackets")
}

func TestValidate_WarnsOnBadArrows(t *testing.T) {
	result := Validate("graph LR\n    A->B")
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "-->")
}

func TestValidate_WarnsOnEmptySubgraph(t *testing.T) {
	src := "graph LR\n    subgraph Empty[\"Empty\"]\n    end\n    A[App]"
	result := Validate(src)
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
}

func TestClean_StripsFencesAndComments(t *testing.T) {
	raw := "```mermaid\ngraph LR\n% a comment\n%% another\n    A[App] --> B[DB]\n```"
	cleaned := Clean(raw)
	assert.Equal(t, "graph LR\n    A[App] --> B[DB]", cleaned)
}

func TestClean_DropsPreamble(t *testing.T) {
	raw := "Here is the updated diagram:\ngraph LR\n    A[App]"
	assert.Equal(t, "graph LR\n    A[App]", Clean(raw))
}

func TestExtractFromMarkdown(t *testing.T) {
	md := "# Doc\n\n```mermaid\ngraph LR\n    A[App]\n```\n\nTail"
	assert.Equal(t, "graph LR\n    A[App]", ExtractFromMarkdown(md))
	assert.Equal(t, "", ExtractFromMarkdown("no fence here"))
}

func TestReplaceInMarkdown_RoundTrip(t *testing.T) {
	md := "# Doc\n\n```mermaid\ngraph LR\n    A[Old]\n```\n\nTail"
	updated, ok := ReplaceInMarkdown(md, "graph LR\n    B[New]")
	require.True(t, ok)
	assert.Equal(t, "graph LR\n    B[New]", ExtractFromMarkdown(updated))
	assert.True(t, strings.HasSuffix(updated, "Tail"))

	_, ok = ReplaceInMarkdown("no fence", "graph LR")
	assert.False(t, ok)
}

func TestRemoveNode(t *testing.T) {
	diagram := "graph LR\n    A[auth.py] --> B[DB]\n    C[App] --> B[DB]"
	out := RemoveNode(diagram, "auth.py")
	assert.NotContains(t, out, "auth.py")
	assert.Contains(t, out, "C[App]")
}
