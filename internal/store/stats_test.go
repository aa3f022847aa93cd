package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionWithToolUse = `{"type":"user","uuid":"A","timestamp":"2025-01-01T10:00:00Z","message":{"role":"user","content":"edit the file"}}
{"type":"assistant","uuid":"B","parentUuid":"A","timestamp":"2025-01-01T10:00:05Z","message":{"role":"assistant","content":[{"type":"text","text":"sure, editing now"},{"type":"tool_use","name":"Edit","input":{"file_path":"/proj/main.go"}}]}}
{"type":"user","uuid":"C","parentUuid":"B","timestamp":"2025-01-01T10:01:00Z","message":{"role":"user","content":"thanks"}}`

func TestGetStatsCountsAndToolBreakdown(t *testing.T) {
	s := newTestStore(t)
	projectID, err := s.UpsertProject("/proj", "-proj")
	require.NoError(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(sessionWithToolUse), 0644))
	_, _, err = s.ImportSession(file, projectID, nil)
	require.NoError(t, err)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Projects)
	assert.Equal(t, int64(1), stats.Sessions)
	assert.Equal(t, int64(1), stats.Branches)
	assert.Equal(t, int64(3), stats.Messages)
	assert.Equal(t, 1, stats.ToolCounts["Edit"])
}

func TestGetStatsReportsDatabaseSize(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.DBSizeBytes)
}
