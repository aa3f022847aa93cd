package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gupsammy/claude-memory/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.db")
	s, err := store.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const simpleSession = `{"type":"user","uuid":"A","timestamp":"2025-01-01T10:00:00Z","message":{"role":"user","content":"hi"}}
{"type":"assistant","uuid":"B","parentUuid":"A","timestamp":"2025-01-01T10:00:05Z","message":{"role":"assistant","content":"hello"}}`

func TestBulkImportWalksProjectsAndSubAgents(t *testing.T) {
	s := newTestStore(t)
	projectsDir := t.TempDir()

	projectKey := "-Users-sam-code-app"
	projectDir := filepath.Join(projectsDir, projectKey)
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "session1.jsonl"), []byte(simpleSession), 0644))

	subagentsDir := filepath.Join(projectDir, "session1", "subagents")
	require.NoError(t, os.MkdirAll(subagentsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(subagentsDir, "agent-task1.jsonl"), []byte(simpleSession), 0644))

	result, err := BulkImport(s, projectsDir, BulkImportOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SessionsWritten)
	assert.Equal(t, 4, result.MessagesWritten)
}

func TestBulkImportSkipsExcludedProjects(t *testing.T) {
	s := newTestStore(t)
	projectsDir := t.TempDir()

	projectDir := filepath.Join(projectsDir, "-Users-sam-code-scratch")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "session1.jsonl"), []byte(simpleSession), 0644))

	result, err := BulkImport(s, projectsDir, BulkImportOptions{ExcludeProjects: []string{"scratch"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SessionsWritten)
}

func TestBulkImportSkipsUnchangedOnSecondRun(t *testing.T) {
	s := newTestStore(t)
	projectsDir := t.TempDir()

	projectDir := filepath.Join(projectsDir, "-Users-sam-code-app")
	require.NoError(t, os.MkdirAll(projectDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "session1.jsonl"), []byte(simpleSession), 0644))

	_, err := BulkImport(s, projectsDir, BulkImportOptions{}, nil)
	require.NoError(t, err)

	result, err := BulkImport(s, projectsDir, BulkImportOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SessionsWritten)
	assert.Equal(t, 1, result.SessionsSkipped)
}
