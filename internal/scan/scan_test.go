package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnored(t *testing.T) {
	tests := []struct {
		path    string
		ignored bool
	}{
		{"main.py", false},
		{"src/app.ts", false},
		{"components/Button.jsx", false},
		{"README.md", true},
		{"package.json", true},
		{"style.css", true},
		{"__pycache__/cached.py", true},
		{"node_modules/lib/index.js", true},
		{".venv/bin/activate.py", true},
		{".git/hooks/pre-commit.py", true},
		{"output/generated.py", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignored, Ignored(tt.path))
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hi')\n")
	writeFile(t, root, "web/app.tsx", "export default 1\n")
	writeFile(t, root, "node_modules/dep/index.js", "ignored\n")
	writeFile(t, root, "notes.txt", "ignored\n")

	paths, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "web/app.tsx"}, paths)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "line1\nline2\n")
	writeFile(t, root, "b/c.js", "x\n")

	files, err := Load(root)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "a.py", files[0].Rel)
	assert.Equal(t, "line1\nline2\n", files[0].Content)
	assert.Equal(t, 3, files[0].Lines)
	assert.True(t, filepath.IsAbs(files[0].Path))
	assert.Equal(t, "b/c.js", files[1].Rel)
}

func TestLoad_EmptyProject(t *testing.T) {
	files, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}
