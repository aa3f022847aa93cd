package driver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsnotify/fsnotify"
)

func newMockWatcher(debounce time.Duration, onChange func(string)) *Watcher {
	return &Watcher{
		debounce: debounce,
		pending:  make(map[string]time.Time),
		onChange: onChange,
	}
}

func TestNewWatcherRejectsNilCallback(t *testing.T) {
	_, err := NewWatcher(time.Second, nil, nil)
	assert.Error(t, err)
}

func TestWatcherCallsOnChangeForJSONL(t *testing.T) {
	dir := t.TempDir()
	done := make(chan string, 1)

	w, err := NewWatcher(30*time.Millisecond, nil, func(path string) { done <- path })
	require.NoError(t, err)
	require.NoError(t, w.WatchRecursive(dir))
	w.Start()
	defer w.Stop()

	path := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	select {
	case got := <-done:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for onChange")
	}
}

func TestWatcherIgnoresNonJSONLFiles(t *testing.T) {
	dir := t.TempDir()
	called := make(chan string, 1)

	w, err := NewWatcher(30*time.Millisecond, nil, func(path string) { called <- path })
	require.NoError(t, err)
	require.NoError(t, w.WatchRecursive(dir))
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	select {
	case path := <-called:
		t.Fatalf("unexpected onChange for %s", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHandleEventIgnoresNonWriteCreate(t *testing.T) {
	w := newMockWatcher(time.Second, nil)
	w.handleEvent(fsnotify.Event{Name: "a.jsonl", Op: fsnotify.Chmod})
	w.handleEvent(fsnotify.Event{Name: "a.jsonl", Op: fsnotify.Rename})
	assert.Empty(t, w.pending)
}

func TestHandleEventRecordsPendingOnWrite(t *testing.T) {
	w := newMockWatcher(time.Second, nil)
	w.handleEvent(fsnotify.Event{Name: "/tmp/test.jsonl", Op: fsnotify.Write})
	assert.Contains(t, w.pending, "/tmp/test.jsonl")
}

func TestFlushRespectsDebouncePeriod(t *testing.T) {
	called := false
	w := newMockWatcher(100*time.Millisecond, func(string) { called = true })
	w.pending["/tmp/recent"] = time.Now()

	w.flush()

	assert.False(t, called)
	assert.Len(t, w.pending, 1)
}

func TestFlushCallsOnChangeAfterDebounce(t *testing.T) {
	var got string
	w := newMockWatcher(10*time.Millisecond, func(path string) { got = path })
	w.pending["/tmp/old"] = time.Now().Add(-50 * time.Millisecond)

	w.flush()

	assert.Equal(t, "/tmp/old", got)
	assert.Empty(t, w.pending)
}

func TestSubAgentParentUUIDExtractsFromPath(t *testing.T) {
	assert.Equal(t, "abc", subAgentParentUUID("/root/.claude/projects/-app/abc/subagents/agent-task1.jsonl"))
	assert.Equal(t, "", subAgentParentUUID("/root/.claude/projects/-app/session1.jsonl"))
}
