package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVerdict struct {
	Structural bool     `json:"is_structural"`
	ChangeType string   `json:"change_type"`
	Components []string `json:"affected_components"`
}

func TestParse_DirectJSON(t *testing.T) {
	result := Parse[testVerdict](`{"is_structural": true, "change_type": "db_connection"}`)

	require.True(t, result.Success, result.Error)
	assert.True(t, result.Data.Structural)
	assert.Equal(t, "db_connection", result.Data.ChangeType)
}

func TestParse_EmptyInput(t *testing.T) {
	result := Parse[testVerdict]("")
	assert.False(t, result.Success)
	assert.Equal(t, "empty input", result.Error)
}

func TestParse_CodeFences(t *testing.T) {
	inputs := []string{
		"```json\n{\"is_structural\": true}\n```",
		"```\n{\"is_structural\": true}\n```",
		"``` json\n{\"is_structural\": true}```",
	}
	for _, in := range inputs {
		result := Parse[testVerdict](in)
		require.True(t, result.Success, "input %q: %s", in, result.Error)
		assert.True(t, result.Data.Structural)
	}
}

func TestParse_TrailingCommasAndComments(t *testing.T) {
	in := `{
		"is_structural": true, // structural change
		"affected_components": ["API", "DB",],
	}`
	result := Parse[testVerdict](in)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, []string{"API", "DB"}, result.Data.Components)
}

func TestParse_MixedContent(t *testing.T) {
	in := `Sure, here is the analysis:
{"is_structural": false, "change_type": "cosmetic"}
Let me know if you need more.`
	result := Parse[testVerdict](in)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "cosmetic", result.Data.ChangeType)
}

func TestParse_Garbage(t *testing.T) {
	result := Parse[testVerdict]("this is not json at all")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "could not parse JSON")
}

func TestField(t *testing.T) {
	assert.Equal(t, "high", Field(`{"risk_level": "high"}`, "risk_level"))
	assert.Equal(t, "low", Field("preamble {\"risk_level\": \"low\"} trailer", "risk_level"))
	assert.Equal(t, "", Field("nothing here", "risk_level"))
}
