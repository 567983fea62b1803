package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := New(t.TempDir(), func(Event) {}, 100*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.True(t, w.IsRunning())

	w.Stop()
	assert.False(t, w.IsRunning())

	// Stopping twice is fine.
	w.Stop()
}

func TestWatcher_CannotStartTwice(t *testing.T) {
	w, err := New(t.TempDir(), func(Event) {}, 100*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Error(t, w.Start())
}

func TestWatcher_DebouncesRapidSaves(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}

	w, err := New(dir, rec.record, 300*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	target := filepath.Join(dir, "service.py")
	for i, content := range []string{"# v1", "# v2", "# v3"} {
		require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
		if i < 2 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	require.Eventually(t, func() bool {
		return len(rec.all()) >= 1
	}, 3*time.Second, 50*time.Millisecond)

	// All rapid saves to the same file collapse into a single event.
	events := rec.all()
	assert.Len(t, events, 1)
	assert.Equal(t, target, events[0].Path)
}

func TestWatcher_IgnoresNonCodeFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}

	w, err := New(dir, rec.record, 150*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.ts"), []byte("code"), 0o644))

	require.Eventually(t, func() bool {
		return len(rec.all()) >= 1
	}, 3*time.Second, 50*time.Millisecond)

	for _, ev := range rec.all() {
		assert.NotContains(t, ev.Path, "README.md")
	}
}

func TestWatcher_ReportsDeletion(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "gone.py")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	rec := &recorder{}
	w, err := New(dir, rec.record, 150*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(target))

	require.Eventually(t, func() bool {
		for _, ev := range rec.all() {
			if ev.Type == Deleted && ev.Path == target {
				return true
			}
		}
		return false
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcher_FlushesInArrivalOrder(t *testing.T) {
	dir := t.TempDir()

	rec := &recorder{}
	w, err := New(dir, rec.record, time.Hour)
	require.NoError(t, err)

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	var want []string
	for i := 0; i < 12; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%02d.py", i))
		want = append(want, path)
		w.handle(nil, fsnotify.Event{Name: path, Op: fsnotify.Write})
	}
	// A repeat write must not move the file to the back of the queue.
	w.handle(nil, fsnotify.Event{Name: want[3], Op: fsnotify.Write})

	w.flush()

	got := rec.all()
	require.Len(t, got, 12)
	for i, ev := range got {
		assert.Equal(t, want[i], ev.Path)
	}
}
