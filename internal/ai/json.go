package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// LLMs wrap JSON in code fences, add trailing commas, and occasionally
// chat around the payload. Parse applies a sequence of cleanup strategies
// instead of trusting the response shape.
//
// Pre-compiled patterns: compiling on every parse is measurably slower
// and these run on every analyst and security-scan response.
var (
	codeFenceRegex = regexp.MustCompile("(?s)```(?:json|javascript|js)?\\s*\n?([\\s\\S]*?)\n?```")

	trailingCommaRegex     = regexp.MustCompile(`,(\s*[}\]])`)
	singleLineCommentRegex = regexp.MustCompile(`(?m)//.*$`)
	multiLineCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)

	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// ParseResult carries the outcome of a lenient JSON parse.
type ParseResult[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Parse attempts to decode an LLM response into T.
//
// Strategy sequence:
//  1. direct JSON parse
//  2. strip code fences and retry
//  3. fix trailing commas and comments and retry
//  4. extract the first JSON object/array from mixed content and retry
func Parse[T any](text string) ParseResult[T] {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parseError[T]("empty input")
	}

	for _, candidate := range candidates(trimmed) {
		var data T
		if err := json.Unmarshal([]byte(candidate), &data); err == nil {
			return ParseResult[T]{Success: true, Data: data}
		}
	}

	preview := trimmed
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return parseError[T](fmt.Sprintf("could not parse JSON from response: %s", preview))
}

// candidates yields progressively more aggressive rewrites of the input.
func candidates(text string) []string {
	out := []string{text}

	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}

	cleaned := singleLineCommentRegex.ReplaceAllString(text, "")
	cleaned = multiLineCommentRegex.ReplaceAllString(cleaned, "")
	cleaned = trailingCommaRegex.ReplaceAllString(cleaned, "$1")
	out = append(out, cleaned)

	if m := objectRegex.FindString(cleaned); m != "" && gjson.Valid(m) {
		out = append(out, m)
	}
	if m := arrayRegex.FindString(cleaned); m != "" && gjson.Valid(m) {
		out = append(out, m)
	}

	return out
}

func parseError[T any](msg string) ParseResult[T] {
	return ParseResult[T]{Error: msg}
}

// Field extracts a single string field from a possibly malformed JSON
// response, looking inside code fences when needed. Used as a last-ditch
// fallback when full decoding fails but one value is still salvageable.
func Field(text, path string) string {
	trimmed := strings.TrimSpace(text)
	if v := gjson.Get(trimmed, path); v.Exists() {
		return v.String()
	}
	if m := objectRegex.FindString(trimmed); m != "" {
		if v := gjson.Get(m, path); v.Exists() {
			return v.String()
		}
	}
	return ""
}
