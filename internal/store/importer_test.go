package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSessionFile(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const linearSession = `{"type":"user","uuid":"A","timestamp":"2025-01-01T10:00:00Z","message":{"role":"user","content":"hi"}}
{"type":"assistant","uuid":"B","parentUuid":"A","timestamp":"2025-01-01T10:00:05Z","message":{"role":"assistant","content":"hello"}}
{"type":"user","uuid":"C","parentUuid":"B","timestamp":"2025-01-01T10:01:00Z","message":{"role":"user","content":"bye"}}`

func TestImportSessionLinear(t *testing.T) {
	s := newTestStore(t)
	projectID, err := s.UpsertProject("/proj", "-proj")
	require.NoError(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "11111111-1111-1111-1111-111111111111.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(linearSession), 0644))

	branches, messages, err := s.ImportSession(file, projectID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, branches)
	assert.Equal(t, 3, messages)
}

func TestImportSessionUnchangedIsSkipped(t *testing.T) {
	s := newTestStore(t)
	projectID, err := s.UpsertProject("/proj", "-proj")
	require.NoError(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(linearSession), 0644))

	_, _, err = s.ImportSession(file, projectID, nil)
	require.NoError(t, err)

	_, _, err = s.ImportSession(file, projectID, nil)
	assert.True(t, errors.Is(err, ErrUnchanged))

	var count int
	require.NoError(t, s.db.Get(&count, `SELECT count(*) FROM messages`))
	assert.Equal(t, 3, count)
}

const rewindSessionFull = `{"type":"user","uuid":"A","timestamp":"2025-01-01T10:00:00Z","message":{"role":"user","content":"hi"}}
{"type":"assistant","uuid":"B","parentUuid":"A","timestamp":"2025-01-01T10:00:05Z","message":{"role":"assistant","content":"hello"}}
{"type":"user","uuid":"C","parentUuid":"B","timestamp":"2025-01-01T10:01:00Z","message":{"role":"user","content":"first try"}}
{"type":"user","uuid":"D","parentUuid":"B","timestamp":"2025-01-01T10:02:00Z","message":{"role":"user","content":"second try"}}`

const rewindSessionWithoutC = `{"type":"user","uuid":"A","timestamp":"2025-01-01T10:00:00Z","message":{"role":"user","content":"hi"}}
{"type":"assistant","uuid":"B","parentUuid":"A","timestamp":"2025-01-01T10:00:05Z","message":{"role":"assistant","content":"hello"}}
{"type":"user","uuid":"D","parentUuid":"B","timestamp":"2025-01-01T10:02:00Z","message":{"role":"user","content":"second try"}}`

func TestImportSessionOrphanCleanupOnReimport(t *testing.T) {
	s := newTestStore(t)
	projectID, err := s.UpsertProject("/proj", "-proj")
	require.NoError(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "session.jsonl")

	require.NoError(t, os.WriteFile(file, []byte(rewindSessionFull), 0644))
	branches, messages, err := s.ImportSession(file, projectID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, branches)
	assert.Equal(t, 4, messages)

	require.NoError(t, os.WriteFile(file, []byte(rewindSessionWithoutC), 0644))
	branches, messages, err = s.ImportSession(file, projectID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, branches)
	assert.Equal(t, 3, messages)

	var count int
	require.NoError(t, s.db.Get(&count, `SELECT count(*) FROM messages WHERE uuid = 'C'`))
	assert.Equal(t, 0, count)

	results, err := s.Search(`"first try"`, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
