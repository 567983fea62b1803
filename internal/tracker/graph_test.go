package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractImportsPython(t *testing.T) {
	content := `import os
from auth import login
from pkg.db import connect
import utils.helpers
`
	refs := ExtractImports("main.py", content)
	assert.ElementsMatch(t, []string{"os", "auth", "pkg.db", "utils.helpers"}, refs)
}

func TestExtractImportsJavaScript(t *testing.T) {
	content := `import React from 'react';
import { login } from './auth';
const db = require('../lib/db');
`
	refs := ExtractImports("app.js", content)
	assert.ElementsMatch(t, []string{"react", "./auth", "../lib/db"}, refs)
}

func TestDependentsDirect(t *testing.T) {
	g := NewDependencyGraph()
	g.AddFile("auth.py", "import os")
	g.AddFile("api.py", "from auth import login")
	g.AddFile("unrelated.py", "import json")

	deps := g.Dependents("auth.py")
	assert.Equal(t, []string{"api.py"}, deps)
}

func TestDependentsTransitive(t *testing.T) {
	g := NewDependencyGraph()
	g.AddFile("db.py", "")
	g.AddFile("auth.py", "import db")
	g.AddFile("api.py", "import auth")

	deps := g.Dependents("db.py")
	assert.ElementsMatch(t, []string{"auth.py", "api.py"}, deps)
}

func TestDependentsAfterRemove(t *testing.T) {
	g := NewDependencyGraph()
	g.AddFile("auth.py", "")
	g.AddFile("api.py", "import auth")
	g.RemoveFile("api.py")

	assert.Empty(t, g.Dependents("auth.py"))
}

func TestDependentsRelativeJSPath(t *testing.T) {
	g := NewDependencyGraph()
	g.AddFile("src/auth.js", "")
	g.AddFile("src/app.js", "import { login } from './auth';")

	assert.Equal(t, []string{"src/app.js"}, g.Dependents("src/auth.js"))
}

func TestModuleStemIndexCollapses(t *testing.T) {
	assert.Equal(t, "auth", moduleStem("src/auth/index.js"))
	assert.Equal(t, "auth", moduleStem("src/auth/__init__.py"))
	assert.Equal(t, "db", moduleStem("src/db.ts"))
}
