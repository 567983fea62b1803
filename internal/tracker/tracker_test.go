package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbra-dev/umbra/internal/ai"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(_ context.Context, _ ai.Request) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestRecordCreated(t *testing.T) {
	tr := New(nil, nil)
	ch := tr.Record(context.Background(), "auth.py", ChangeCreated, "", "def login():\n    pass\n")

	assert.Equal(t, ChangeCreated, ch.Type)
	assert.Equal(t, 2, ch.LinesAdded)
	assert.Equal(t, "New file with 2 lines", ch.Description)
	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, tr.SessionID(), ch.SessionID)
}

func TestRecordUsesGeneratorDescription(t *testing.T) {
	gen := &fakeGenerator{response: "Adds a login endpoint.\nextra line"}
	tr := New(gen, nil)
	ch := tr.Record(context.Background(), "api.py", ChangeModified, "a\n", "a\nb\n")

	assert.Equal(t, "Adds a login endpoint.", ch.Description)
	assert.Equal(t, 1, gen.calls)
}

func TestRecordGeneratorFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("api down")}
	tr := New(gen, nil)
	ch := tr.Record(context.Background(), "api.py", ChangeModified, "a\n", "a\nb\n")

	assert.Equal(t, "+1/-0 lines", ch.Description)
}

func TestDeleteWithDependentsIsCritical(t *testing.T) {
	tr := New(nil, nil)
	tr.Prefill(map[string]string{
		"auth.py": "import os",
		"api.py":  "import auth",
	})

	ch := tr.Record(context.Background(), "auth.py", ChangeDeleted, "import os", "")
	assert.Equal(t, ImpactCritical, ch.Impact)
	assert.Equal(t, []string{"api.py"}, ch.Dependents)
	require.Len(t, ch.Warnings, 1)
	assert.Contains(t, ch.Warnings[0], "imported by 1")
}

func TestImpactGrading(t *testing.T) {
	tests := []struct {
		dependents int
		want       ImpactLevel
	}{
		{0, ImpactLow},
		{2, ImpactLow},
		{5, ImpactMedium},
		{6, ImpactHigh},
	}
	for _, tt := range tests {
		tr := New(nil, nil)
		files := map[string]string{"core.py": ""}
		for i := 0; i < tt.dependents; i++ {
			files[fmt.Sprintf("dep%d.py", i)] = "import core"
		}
		tr.Prefill(files)
		ch := tr.Record(context.Background(), "core.py", ChangeModified, "", "x = 1\n")
		assert.Equal(t, tt.want, ch.Impact, "dependents=%d", tt.dependents)
	}
}

func TestSecretWarningOnAddedLines(t *testing.T) {
	tr := New(nil, nil)
	old := "x = 1\n"
	updated := "x = 1\napi_key = \"sk_live_abcdefghij1234567890\"\n"
	ch := tr.Record(context.Background(), "config.py", ChangeModified, old, updated)

	require.Len(t, ch.Warnings, 1)
	assert.Contains(t, ch.Warnings[0], "secret")
}

func TestNoSecretWarningForPreexisting(t *testing.T) {
	tr := New(nil, nil)
	old := "password = \"supersecret99\"\nx = 1\n"
	updated := "password = \"supersecret99\"\nx = 2\n"
	ch := tr.Record(context.Background(), "settings.py", ChangeModified, old, updated)

	assert.Empty(t, ch.Warnings)
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		path string
		typ  ChangeType
		diff string
		want ChangeIntent
	}{
		{"fix_login.py", ChangeModified, "", IntentBugfix},
		{"config.py", ChangeModified, "", IntentConfig},
		{"settings.yaml", ChangeModified, "", IntentConfig},
		{"old.py", ChangeDeleted, "", IntentCleanup},
		{"widget.py", ChangeModified, "def new_feature():", IntentFeature},
		{"widget.py", ChangeCreated, "x = 1", IntentFeature},
		{"widget.py", ChangeModified, "x = 2", IntentUnknown},
	}
	for _, tt := range tests {
		got := classifyIntent(tt.path, tt.typ, tt.diff)
		assert.Equal(t, tt.want, got, "%s %s", tt.path, tt.typ)
	}
}

func TestRecentRingBounded(t *testing.T) {
	tr := New(nil, nil)
	for i := 0; i < recentChangeLimit+10; i++ {
		tr.Record(context.Background(), fmt.Sprintf("f%d.py", i), ChangeCreated, "", "x\n")
	}
	recent := tr.Recent(0)
	assert.Len(t, recent, recentChangeLimit)
	// Newest first.
	assert.Equal(t, fmt.Sprintf("f%d.py", recentChangeLimit+9), recent[0].Path)
}

func TestSummary(t *testing.T) {
	tr := New(nil, nil)
	assert.Equal(t, "No changes tracked this session.", tr.Summary())

	tr.Record(context.Background(), "a.py", ChangeCreated, "", "x\n")
	tr.Record(context.Background(), "a.py", ChangeModified, "x\n", "y\n")
	s := tr.Summary()
	assert.Contains(t, s, "2 changes")
	assert.Contains(t, s, "1 created")
	assert.Contains(t, s, "1 modified")
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	tr := New(nil, store)
	ch := tr.Record(context.Background(), "auth.py", ChangeCreated, "", "def login():\n")

	got, err := store.ListChanges(context.Background(), tr.SessionID(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ch.ID, got[0].ID)
	assert.Equal(t, "auth.py", got[0].Path)
	assert.Equal(t, ChangeCreated, got[0].Type)
	assert.Equal(t, ch.Description, got[0].Description)
}

func TestStoreLatestSessionID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	latest, err := store.LatestSessionID(context.Background())
	require.NoError(t, err)
	assert.Empty(t, latest)

	first := New(nil, store)
	first.Record(context.Background(), "a.py", ChangeCreated, "", "x = 1\n")

	second := New(nil, store)
	second.Record(context.Background(), "b.py", ChangeCreated, "", "y = 2\n")

	latest, err = store.LatestSessionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.SessionID(), latest)
}
