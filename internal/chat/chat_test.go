package chat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-dev/umbra/internal/ai"
	"github.com/umbra-dev/umbra/internal/scan"
)

type fakeGenerator struct {
	response string
	lastReq  ai.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	f.lastReq = req
	return f.response, nil
}

func TestFilePriority(t *testing.T) {
	files := []scan.File{
		{Rel: "utils/helpers.py", Content: "x"},
		{Rel: "main.py", Content: "y"},
		{Rel: "api/routes.py", Content: "z"},
	}
	formatted := formatFiles(files)

	mainIdx := strings.Index(formatted, "### main.py")
	apiIdx := strings.Index(formatted, "### api/routes.py")
	helperIdx := strings.Index(formatted, "### utils/helpers.py")
	assert.Less(t, mainIdx, apiIdx)
	assert.Less(t, apiIdx, helperIdx)
}

func TestFormatFilesTruncatesLargeContent(t *testing.T) {
	files := []scan.File{{Rel: "big.py", Content: strings.Repeat("a", maxFileBytes+100)}}
	formatted := formatFiles(files)
	assert.Contains(t, formatted, "... [truncated]")
}

func TestFormatFilesCapsCount(t *testing.T) {
	var files []scan.File
	for i := 0; i < maxContextFiles+5; i++ {
		files = append(files, scan.File{Rel: "z" + strings.Repeat("z", i) + ".py", Content: "x"})
	}
	formatted := formatFiles(files)
	assert.Equal(t, maxContextFiles, strings.Count(formatted, "### "))
}

func TestFormatFilesEmpty(t *testing.T) {
	assert.Equal(t, "No code files found.", formatFiles(nil))
}

func TestAskIncludesArchitectureContext(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("print('hi')"), 0o644))
	archFile := filepath.Join(root, "LIVE_ARCHITECTURE.md")
	require.NoError(t, os.WriteFile(archFile, []byte("# Live Architecture\n\ngraph LR"), 0o644))

	gen := &fakeGenerator{response: "It prints hi, see main.py."}
	s := NewSession(gen, root, archFile)

	answer, err := s.Ask(context.Background(), "What does this do?")
	require.NoError(t, err)
	assert.Equal(t, "It prints hi, see main.py.", answer)
	assert.Contains(t, gen.lastReq.System, "## Architecture Diagram")
	assert.Contains(t, gen.lastReq.System, "### main.py")
	assert.Equal(t, "What does this do?", gen.lastReq.Prompt)
}

func TestAskWithoutArchitectureFile(t *testing.T) {
	root := t.TempDir()
	gen := &fakeGenerator{response: "answer"}
	s := NewSession(gen, root, filepath.Join(root, "missing.md"))

	_, err := s.Ask(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Contains(t, gen.lastReq.System, "No architecture context available yet.")
}
